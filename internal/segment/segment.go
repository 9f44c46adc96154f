// Package segment holds the result data of a recognizer run: segments,
// the media they were derived from, and a boundary index for fast lookups.
package segment

import (
	"fmt"
)

// RSelection is a time interval in milliseconds.
type RSelection struct {
	BeginTime int64 `json:"begin_time"`
	EndTime   int64 `json:"end_time"`
}

// Segment is an RSelection carrying a label.
type Segment struct {
	RSelection
	Label string `json:"label,omitempty"`
}

// NewSegment returns a labelled segment.
func NewSegment(begin, end int64, label string) Segment {
	return Segment{RSelection: RSelection{BeginTime: begin, EndTime: end}, Label: label}
}

// Equal compares by begin and end time only.
func (r RSelection) Equal(o RSelection) bool {
	return r.BeginTime == o.BeginTime && r.EndTime == o.EndTime
}

// MediaDescriptor names a media file used by a recognizer. Channel is 1 for
// mono or the left channel and 2 for the right one; it means nothing for video.
type MediaDescriptor struct {
	MediaFilePath string `json:"media_file_path"`
	Channel       int    `json:"channel"`
}

// Segmentation is a named, ordered collection of non-overlapping segments.
type Segmentation struct {
	Name             string            `json:"name"`
	Segments         []Segment         `json:"segments"`
	MediaDescriptors []MediaDescriptor `json:"media_descriptors"`
}

// New builds a segmentation for a single media file, channel 1.
func New(name string, segments []Segment, mediaFilePath string) *Segmentation {
	return NewWithChannel(name, segments, mediaFilePath, 1)
}

// NewWithChannel builds a segmentation for one channel of a media file.
func NewWithChannel(name string, segments []Segment, mediaFilePath string, channel int) *Segmentation {
	return NewWithDescriptor(name, segments, MediaDescriptor{MediaFilePath: mediaFilePath, Channel: channel})
}

// NewWithDescriptor builds a segmentation from an explicit descriptor.
func NewWithDescriptor(name string, segments []Segment, d MediaDescriptor) *Segmentation {
	if segments == nil {
		segments = []Segment{}
	}
	return &Segmentation{
		Name:             name,
		Segments:         segments,
		MediaDescriptors: []MediaDescriptor{d},
	}
}

// AddMediaDescriptor records an extra media file or channel.
func (s *Segmentation) AddMediaDescriptor(d MediaDescriptor) {
	s.MediaDescriptors = append(s.MediaDescriptors, d)
}

// Validate reports the first segment that is inverted or overlaps its
// predecessor. Producers are expected to deliver ordered, disjoint segments;
// nothing else in this package enforces it.
func (s *Segmentation) Validate() error {
	var prevEnd int64
	for i, seg := range s.Segments {
		if seg.BeginTime > seg.EndTime {
			return fmt.Errorf("segmentation %q: segment %d ends before it begins (%d > %d)", s.Name, i, seg.BeginTime, seg.EndTime)
		}
		if i > 0 && seg.BeginTime < prevEnd {
			return fmt.Errorf("segmentation %q: segment %d starts at %d before previous end %d", s.Name, i, seg.BeginTime, prevEnd)
		}
		prevEnd = seg.EndTime
	}
	return nil
}
