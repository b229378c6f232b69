// Package hitsample describes the sounds attached to hit objects.
package hitsample

import (
	"errors"
	"fmt"
)

const (
	Normal        = "hitnormal"
	Whistle       = "hitwhistle"
	Finish        = "hitfinish"
	Clap          = "hitclap"
	SliderTick    = "slidertick"
	SliderSlide   = "sliderslide"
	SliderWhistle = "sliderwhistle"
)

const (
	BankNone   = ""
	BankNormal = "normal"
	BankSoft   = "soft"
	BankDrum   = "drum"
)

// ErrUnknownSampleType is returned when an Info implementation outside this
// package is cloned.
var ErrUnknownSampleType = errors.New("unknown sample type")

// Info is one sample. The variant set is closed: BankSample and FileSample.
type Info interface {
	LookupNames() []string
	SampleVolume() int
}

// BankSample is a named sample resolved against a bank ("normal", "soft", "drum").
type BankSample struct {
	Name string
	Bank string
	// Suffix is the custom sample index as a string, empty for the default set.
	Suffix      string
	CustomIndex int
	Volume      int
	// EditorAutoBank marks a bank inherited from the timing section.
	EditorAutoBank bool
}

func (s BankSample) LookupNames() []string {
	base := s.Bank + "-" + s.Name
	if s.Suffix != "" {
		return []string{base + s.Suffix, base}
	}
	return []string{base}
}

func (s BankSample) SampleVolume() int { return s.Volume }

// With returns a copy with a different name.
func (s BankSample) With(name string) BankSample {
	s.Name = name
	return s
}

// FileSample plays a file from the beatmap directory.
type FileSample struct {
	Filename string
	Volume   int
}

func (s FileSample) LookupNames() []string { return []string{s.Filename} }
func (s FileSample) SampleVolume() int     { return s.Volume }

// Clone copies a sample.
func Clone(info Info) (Info, error) {
	switch s := info.(type) {
	case BankSample:
		return s, nil
	case *BankSample:
		c := *s
		return c, nil
	case FileSample:
		return s, nil
	case *FileSample:
		c := *s
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownSampleType, info)
	}
}

// CloneAll copies every sample in order.
func CloneAll(infos []Info) ([]Info, error) {
	out := make([]Info, 0, len(infos))
	for _, info := range infos {
		c, err := Clone(info)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Name reports the sample's name; file samples have none.
func Name(info Info) string {
	if s, ok := info.(BankSample); ok {
		return s.Name
	}
	return ""
}

// Has reports whether a bank sample with the given name is present.
func Has(infos []Info, name string) bool {
	for _, info := range infos {
		if Name(info) == name {
			return true
		}
	}
	return false
}

// First returns the first bank sample with the given name.
func First(infos []Info, name string) (BankSample, bool) {
	for _, info := range infos {
		if s, ok := info.(BankSample); ok && s.Name == name {
			return s, true
		}
	}
	return BankSample{}, false
}
