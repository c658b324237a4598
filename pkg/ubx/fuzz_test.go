// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ubx

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomByte returns a random byte other than Sync1
func randomByte(rng *rand.Rand) byte {
	for {
		if b := byte(rng.Intn(256)); b != Sync1 {
			return b
		}
	}
}

// buildRandomFrame creates a valid frame whose bytes after the leading sync
// byte never contain Sync1, so it decodes cleanly from any state.
func buildRandomFrame(rng *rand.Rand, maxPayload int) (class, id uint8, payload, frame []byte) {
	for {
		class = randomByte(rng)
		id = randomByte(rng)
		payload = make([]byte, rng.Intn(maxPayload+1))
		for i := range payload {
			payload[i] = randomByte(rng)
		}
		frame = buildFrame(class, id, payload)
		if bytes.IndexByte(frame[1:], Sync1) < 0 {
			return class, id, payload, frame
		}
	}
}

// ============================================================
// Decoder Fuzz Tests
// ============================================================

// TestFuzzDecoder_RandomBytes feeds random bytes to the decoder
// and verifies it doesn't crash or overrun its buffer
func TestFuzzDecoder_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoderSize(64)

		length := rng.Intn(512) + 1
		data := make([]byte, length)
		rng.Read(data)

		for _, b := range data {
			d.DecodeByte(b)
			if d.Buffered() > d.Capacity() {
				t.Fatalf("Round %d: buffered %d exceeds capacity %d", i, d.Buffered(), d.Capacity())
			}
		}
	}
}

// TestFuzzDecoder_RandomFrames generates random valid frames
func TestFuzzDecoder_RandomFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()
		class, id, payload, data := buildRandomFrame(rng, 64)

		frames, errs := feedAll(d, data)
		if len(errs) != 0 {
			t.Errorf("Round %d: unexpected decode errors: %v", i, errs)
			continue
		}
		if len(frames) != 1 {
			t.Errorf("Round %d: expected 1 frame, got %d", i, len(frames))
			continue
		}

		f := frames[0]
		if f.Class() != class || f.ID() != id {
			t.Errorf("Round %d: key mismatch: expected 0x%02X 0x%02X, got 0x%02X 0x%02X", i, class, id, f.Class(), f.ID())
		}
		if !bytes.Equal(f.Payload(), payload) {
			t.Errorf("Round %d: payload mismatch", i)
		}
	}
}

// TestFuzzDecoder_CorruptedFrames corrupts one byte of a valid frame and
// checks the decoder still recovers on the following frame
func TestFuzzDecoder_CorruptedFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()
		_, _, _, data := buildRandomFrame(rng, 64)

		// Corrupt a random byte after the sync pair
		idx := rng.Intn(len(data)-2) + 2
		data[idx] ^= byte(rng.Intn(255) + 1)

		for _, b := range data {
			d.DecodeByte(b)
		}

		frames, errs := feedAll(d, solFrame)
		if len(errs) != 0 || len(frames) != 1 {
			t.Errorf("Round %d: expected recovery, got %d frames, errors %v", i, len(frames), errs)
		}
	}
}

// TestFuzzDecoder_GarbageBetweenFrames interleaves random noise (free of
// sync bytes) with valid frames
func TestFuzzDecoder_GarbageBetweenFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()
		var stream []byte
		want := rng.Intn(8) + 1

		for j := 0; j < want; j++ {
			noise := make([]byte, rng.Intn(32))
			for k := range noise {
				noise[k] = randomByte(rng)
			}
			stream = append(stream, noise...)
			_, _, _, frame := buildRandomFrame(rng, 32)
			stream = append(stream, frame...)
		}

		frames, _ := feedAll(d, stream)
		if len(frames) != want {
			t.Errorf("Round %d: expected %d frames, got %d", i, want, len(frames))
		}
	}
}

// TestFuzzParser_RandomStream feeds random bytes through the parser and
// checks every dispatched message is well formed
func TestFuzzParser_RandomStream(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		p := NewParser(HandlerFunc(func(m Message) {
			if m == nil {
				t.Fatal("nil message dispatched")
			}
		}))

		var stream []byte
		for j := 0; j < 4; j++ {
			noise := make([]byte, rng.Intn(64))
			rng.Read(noise)
			stream = append(stream, noise...)
			stream = append(stream, buildFrame(ClassNAV, IDNavPosLLH, posLLHPayload())...)
		}
		p.Write(stream)
	}
}
