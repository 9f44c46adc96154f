package run

import (
	"sync"

	"annorec/internal/recognizer"
	"annorec/internal/segment"

	"github.com/sirupsen/logrus"
)

// collector forwards host callbacks and keeps the delivered segmentation.
type collector struct {
	recognizer.Host
	log *logrus.Entry

	mu  sync.Mutex
	seg *segment.Segmentation
}

func newCollector(h recognizer.Host, log *logrus.Entry) *collector {
	return &collector{Host: h, log: log}
}

func (c *collector) AddSegmentation(seg *segment.Segmentation) {
	if err := seg.Validate(); err != nil {
		c.log.Warnf("recognizer delivered an inconsistent segmentation: %v", err)
	}
	c.mu.Lock()
	c.seg = seg
	c.mu.Unlock()
	c.Host.AddSegmentation(seg)
}

func (c *collector) segmentation() *segment.Segmentation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seg
}
