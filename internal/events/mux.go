package events

import "sync"

// Sourced tags an event with the index of the endpoint it came from.
type Sourced struct {
	Source int
	Event  Event
}

// Merge multiplexes reads from several endpoints into one stream, the
// wait-for-any-readable discipline of the capture path. One goroutine
// per endpoint blocks in ReadEvent; the merged channel closes once
// every endpoint has terminated. Per-endpoint ordering is preserved,
// cross-endpoint interleaving is unspecified.
func Merge(conns []Conn) <-chan Sourced {
	out := make(chan Sourced)
	var wg sync.WaitGroup
	for i, c := range conns {
		wg.Add(1)
		go func(src int, c Conn) {
			defer wg.Done()
			for {
				e, err := c.ReadEvent()
				if err != nil {
					return
				}
				out <- Sourced{Source: src, Event: e}
			}
		}(i, c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
