package main

import (
	. "fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dterei/gotsc"

	"github.com/p7r0x7/kaleidohash"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.

var lengths = [...]int{10, 100, 1000}
var gen, calltime = (*kaleidohash.Generator)(nil), gotsc.TSCOverhead()

func BenchmarkForward(b *testing.B) {
	seed, dst := []byte("statz-01"), make([]byte, 0, 64)
	b.ReportAllocs()
	b.ResetTimer()
	for i := b.N; i > 0; i-- {
		dst = gen.Forward(dst[:0], seed)
	}
}

// benchFunction measures chain throughput for fn at every chain length, in millions of hashes
// per second and, where the TSC is available, cycles per hash.
func benchFunction(space *kaleidohash.Space, fn kaleidohash.Function) {
	const s = len(lengths)
	throughputs, speeds, usages := make([]float64, s), make([]float64, s), make([]float64, s)

	for i, l := range lengths {
		gen = kaleidohash.NewGenerator(space, fn, kaleidohash.PCG(space), l)

		totalHz, polls, mut := uint64(0), uint64(0), &sync.Mutex{}
		var stop atomic.Bool
		if calltime > 0 {
			go func() {
				for !stop.Load() {
					tsc1 := gotsc.BenchStart()
					time.Sleep(time.Millisecond)
					tsc2 := gotsc.BenchEnd()

					mut.Lock()
					totalHz += tsc2 - tsc1 - calltime
					polls++
					mut.Unlock()

					time.Sleep(time.Millisecond * 9)
				}
			}()
		}
		r := testing.Benchmark(BenchmarkForward)
		stop.Store(true)
		mut.Lock()
		totalHz *= 1000

		hashes := float64(r.N) * float64(l+1) / r.T.Seconds() /* hashes/s */
		if polls > 0 {
			speeds[i] = float64(totalHz) / float64(polls) / hashes
		}
		throughputs[i] = hashes / 1e6
		usages[i] = float64(r.AllocedBytesPerOp())
		mut.Unlock()
	}

	Println("Speed " + fmtFloats(throughputs...) + "   MH/s")
	if calltime > 0 {
		Println("      " + fmtFloats(speeds...) + "   cph")
	}
	Println("Usage " + fmtFloats(usages...) + "   B/chain\n")
}

func fmtFloats(f ...float64) string {
	var str, style string
	for _, v := range f {
		switch whole := float64(int64(v)) == v; {
		case v > 1e8 || (v < 1e-6 && !whole):
			style = "%8.3g"
		case v <= 1e1 && !whole:
			style = "%8.6f"
		case v <= 1e2 && !whole:
			style = "%8.5f"
		case v <= 1e3 && !whole:
			style = "%8.4f"
		case v <= 1e4 && !whole:
			style = "%8.3f"
		case v <= 1e5 && !whole:
			style = "%8.2f"
		case v <= 1e6 && !whole:
			style = "%8.1f"
		default:
			style = "%8.f"
		}
		str += "  " + Sprintf(style, v)
	}
	return str
}

func main() {
	Printf("Running Statz on %d CPUs!\n%s/%s %s\n\n", runtime.NumCPU(), runtime.GOOS, runtime.GOARCH, features())
	t := time.Now()

	reducerTests()
	Println(" ============================================= ")

	space, err := kaleidohash.NewSpace(kaleidohash.Alphabet("alnum"), 8)
	if err != nil {
		panic(err)
	}
	Printf("Chain length    %8d  %8d  %8d\n\n", lengths[0], lengths[1], lengths[2])
	for _, name := range kaleidohash.Functions() {
		fn, _ := kaleidohash.LookupFunction(name)
		Println(name)
		benchFunction(space, fn)
	}

	Println("Finished in " + time.Since(t).Truncate(time.Millisecond).String() + ".")
}
