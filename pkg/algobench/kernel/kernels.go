package kernel

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/scrypt"
	"golang.org/x/crypto/sha3"
)

// Memory-hard parameters.
const (
	scryptN = 1024
	scryptR = 1
	scryptP = 1

	argonTime    = 1
	argonMemKiB  = 64
	argonThreads = 1
)

// How often Scan checks for cancellation, as a mask over the nonce index.
const (
	fastCheck = 1<<10 - 1
	slowCheck = 0
)

func init() {
	register(Kernel{
		Name: "sha256d",
		New: func(lanes uint32) Hasher {
			return newLaneHasher(lanes, 0, fastCheck, func(out, header []byte) int {
				first := sha256.Sum256(header)
				second := sha256.Sum256(first[:])
				return copy(out, second[:])
			})
		},
	})

	register(Kernel{
		Name: "keccak",
		New: func(lanes uint32) Hasher {
			d := sha3.NewLegacyKeccak256()
			return newLaneHasher(lanes, 0, fastCheck, func(out, header []byte) int {
				d.Reset()
				_, _ = d.Write(header)
				return len(d.Sum(out[:0]))
			})
		},
	})

	register(Kernel{
		Name: "blake2s",
		New: func(lanes uint32) Hasher {
			return newLaneHasher(lanes, 0, fastCheck, func(out, header []byte) int {
				sum := blake2s.Sum256(header)
				return copy(out, sum[:])
			})
		},
	})

	register(Kernel{
		Name: "blake2b",
		New: func(lanes uint32) Hasher {
			return newLaneHasher(lanes, 0, fastCheck, func(out, header []byte) int {
				sum := blake2b.Sum256(header)
				return copy(out, sum[:])
			})
		},
	})

	register(Kernel{
		Name: "xxh64",
		New: func(lanes uint32) Hasher {
			return newLaneHasher(lanes, 0, fastCheck, func(out, header []byte) int {
				binary.LittleEndian.PutUint64(out, xxhash.Sum64(header))
				return 8
			})
		},
	})

	register(Kernel{
		Name:      "scrypt",
		LaneBytes: 128 * scryptR * scryptN,
		New: func(lanes uint32) Hasher {
			return newLaneHasher(lanes, 128*scryptR*scryptN, slowCheck, func(out, header []byte) int {
				key, err := scrypt.Key(header, header, scryptN, scryptR, scryptP, digestSize)
				if err != nil {
					return 0
				}
				return copy(out, key)
			})
		},
	})

	register(Kernel{
		Name:      "argon2id",
		LaneBytes: argonMemKiB * 1024,
		New: func(lanes uint32) Hasher {
			return newLaneHasher(lanes, argonMemKiB*1024, slowCheck, func(out, header []byte) int {
				key := argon2.IDKey(header, header[:16], argonTime, argonMemKiB, argonThreads, digestSize)
				return copy(out, key)
			})
		},
	})
}
