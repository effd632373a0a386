// Package kernel provides the CPU hash kernels algobench benchmarks.
//
// A kernel hashes an 80-byte work header with a 32-bit nonce in its last
// four bytes, one nonce per lane. Each Hasher owns an output buffer sized
// for its lanes; memory-hard kernels also declare the scratch memory one
// lane needs so throughput can be tuned to free device memory.
package kernel

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the size of the work header in bytes.
const HeaderSize = 80

// ErrUnknownKernel means no kernel is registered under a name.
var ErrUnknownKernel = errors.New("unknown kernel")

// Hasher runs one kernel on a fixed number of lanes.
// A Hasher is used by a single worker and is not safe for concurrent use.
type Hasher interface {
	// Scan hashes count nonces starting at start and returns how many were
	// hashed. It stops early when ctx is done, returning the partial count
	// and the context error.
	Scan(ctx context.Context, start, count uint32) (uint32, error)

	// Footprint is the memory the hasher holds, in bytes.
	Footprint() int64

	// Close releases the hasher's buffers.
	Close()
}

// Kernel describes one hash algorithm.
type Kernel struct {
	// Name is the catalog name of the algorithm.
	Name string

	// LaneBytes is the working memory one lane needs.
	LaneBytes int64

	// New returns a hasher for lanes parallel lanes.
	New func(lanes uint32) Hasher
}

// hashFunc writes the digest of header into out and returns the digest length.
type hashFunc func(out, header []byte) int

// digestSize is the largest digest any kernel produces.
const digestSize = 32

// laneHasher is the Hasher shared by every kernel: a work header, one
// digest slot per lane and a hash function.
type laneHasher struct {
	header    [HeaderSize]byte
	out       []byte
	lanes     uint32
	laneBytes int64
	checkMask uint32
	hash      hashFunc
}

func newLaneHasher(lanes uint32, laneBytes int64, checkMask uint32, hash hashFunc) *laneHasher {
	lanes = max(lanes, 1)
	h := &laneHasher{
		out:       make([]byte, int(lanes)*digestSize),
		lanes:     lanes,
		laneBytes: laneBytes,
		checkMask: checkMask,
		hash:      hash,
	}
	for i := range h.header[:HeaderSize-4] {
		h.header[i] = byte(i * 7)
	}
	return h
}

func (h *laneHasher) Scan(ctx context.Context, start, count uint32) (uint32, error) {
	if h.out == nil {
		return 0, errors.New("scan on closed hasher")
	}

	for i := uint32(0); i < count; i++ {
		if i&h.checkMask == 0 {
			if err := ctx.Err(); err != nil {
				return i, err
			}
		}

		binary.LittleEndian.PutUint32(h.header[HeaderSize-4:], start+i)
		slot := (i % h.lanes) * digestSize
		h.hash(h.out[slot:slot+digestSize], h.header[:])
	}
	return count, nil
}

func (h *laneHasher) Footprint() int64 {
	return int64(len(h.out)) + int64(h.lanes)*h.laneBytes
}

func (h *laneHasher) Close() {
	h.out = nil
}

var registry = map[string]Kernel{}

// order keeps registration order for Names.
var order []string

func register(k Kernel) {
	if _, dup := registry[k.Name]; dup {
		panic(fmt.Sprintf("kernel %s registered twice", k.Name))
	}
	registry[k.Name] = k
	order = append(order, k.Name)
}

// Lookup returns the kernel registered under name.
func Lookup(name string) (Kernel, error) {
	k, ok := registry[name]
	if !ok {
		return Kernel{}, fmt.Errorf("%w: %s", ErrUnknownKernel, name)
	}
	return k, nil
}

// Names returns registered kernel names in registration order.
func Names() []string {
	return append([]string(nil), order...)
}
