// Command doctreedemo drives a handful of independent doctree.Document
// replicas through randomized concurrent edits, exchanges the resulting
// patches over per-replica channels in shuffled, duplicated order, and
// reports whether every replica converged to the same text — the same
// kind of randomized-workload driver the teacher's cmd/main.go runs
// against a routing table, applied here to the document CRDT's
// convergence property instead of a lookup benchmark.
package main

import (
	"log"
	"math/rand/v2"
	"sync"

	"github.com/cortext/doctree"
)

const (
	replicaCount  = 5
	editsPerSite  = 40
	alphabet      = "abcdefghijklmnopqrstuvwxyz "
	inboxCapacity = 4096
)

func main() {
	log.SetFlags(log.Lmicroseconds)

	prng := rand.New(rand.NewPCG(42, 42))

	replicas := make([]*doctree.Document, replicaCount)
	inboxes := make([]chan []byte, replicaCount)
	for i := range replicas {
		seed := prng.Uint64()
		replicas[i] = doctree.NewDocument(int32(i+1), doctree.WithRand(rand.New(rand.NewPCG(seed, seed))))
		inboxes[i] = make(chan []byte, inboxCapacity)
	}

	broadcast := func(from int, p []byte) {
		for to := range replicas {
			if to == from {
				continue
			}
			inboxes[to] <- p
			// Redeliver ~10% of patches a second time to exercise Apply's
			// idempotence under duplicate delivery.
			if prng.IntN(10) == 0 {
				inboxes[to] <- p
			}
		}
	}

	workerSeeds := make([][2]uint64, replicaCount)
	for i := range workerSeeds {
		workerSeeds[i] = [2]uint64{prng.Uint64(), prng.Uint64()}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex // guards broadcast's shared prng and inbox sends

	for i := range replicas {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			localRNG := rand.New(rand.NewPCG(workerSeeds[i][0], workerSeeds[i][1]))
			doc := replicas[i]
			for e := 0; e < editsPerSite; e++ {
				p := randomEdit(doc, localRNG)
				mu.Lock()
				broadcast(i, p)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	for i, doc := range replicas {
		close(inboxes[i])
		inbox := inboxes[i]
		drainAndApply(doc, inbox, prng)
	}

	for i, doc := range replicas {
		log.Printf("replica %d: len=%d text=%q", i+1, doc.Len(), doc.Text())
	}

	first := replicas[0].Text()
	converged := true
	for _, doc := range replicas[1:] {
		if doc.Text() != first {
			converged = false
		}
	}
	if !converged {
		log.Fatal("replicas diverged")
	}
	log.Printf("all %d replicas converged on %d characters", replicaCount, len(first))
}

// randomEdit performs one random insert or delete on doc and returns its
// encoded patch. Deletes are only attempted once the document is
// non-empty.
func randomEdit(doc *doctree.Document, rng *rand.Rand) []byte {
	if doc.Len() == 0 || rng.IntN(3) != 0 {
		idx := rng.IntN(doc.Len() + 1)
		ch := string(alphabet[rng.IntN(len(alphabet))])
		p, err := doc.Insert(idx, ch)
		if err != nil {
			log.Fatalf("insert: %v", err)
		}
		return p
	}

	idx := rng.IntN(doc.Len())
	p, err := doc.Delete(idx)
	if err != nil {
		log.Fatalf("delete: %v", err)
	}
	return p
}

// drainAndApply collects every patch queued for doc, shuffles them with
// rng, and applies them in that shuffled order.
func drainAndApply(doc *doctree.Document, inbox chan []byte, rng *rand.Rand) {
	var pending [][]byte
	for p := range inbox {
		pending = append(pending, p)
	}
	rng.Shuffle(len(pending), func(i, j int) {
		pending[i], pending[j] = pending[j], pending[i]
	})
	for _, p := range pending {
		if err := doc.Apply(p); err != nil {
			log.Fatalf("apply: %v", err)
		}
	}
}
