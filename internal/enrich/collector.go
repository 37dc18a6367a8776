package enrich

import "github.com/j-veylop/mass-rtp-search/internal/models"

// collector owns the outcome slice. Pipelines hand outcomes over a channel
// to a single goroutine, so the slice needs no lock.
type collector struct {
	in       chan models.Outcome
	done     chan struct{}
	observe  func(models.Outcome)
	outcomes []models.Outcome
}

func newCollector(n int, observe func(models.Outcome)) *collector {
	c := &collector{
		in:       make(chan models.Outcome),
		done:     make(chan struct{}),
		observe:  observe,
		outcomes: make([]models.Outcome, 0, n),
	}
	go c.loop()
	return c
}

func (c *collector) loop() {
	defer close(c.done)
	for o := range c.in {
		c.outcomes = append(c.outcomes, o)
		if c.observe != nil {
			c.observe(o)
		}
	}
}

func (c *collector) add(o models.Outcome) {
	c.in <- o
}

// drain must only be called after every add has returned.
func (c *collector) drain() []models.Outcome {
	close(c.in)
	<-c.done
	return c.outcomes
}
