package device

import (
	"fmt"
	"os"
	"time"

	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

const oggPageDuration = 20 * time.Millisecond

type ivfSource struct {
	f     *os.File
	r     *ivfreader.IVFReader
	frame time.Duration
}

func openIVF(path string) (frameSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, hdr, err := ivfreader.NewWith(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("ivf %s: %w", path, err)
	}
	frame := 33 * time.Millisecond
	if hdr.TimebaseDenominator != 0 && hdr.TimebaseNumerator != 0 {
		frame = time.Duration((float64(hdr.TimebaseNumerator)/float64(hdr.TimebaseDenominator))*1000) * time.Millisecond
	}
	return &ivfSource{f: f, r: r, frame: frame}, nil
}

func (s *ivfSource) Next() ([]byte, time.Duration, error) {
	frame, _, err := s.r.ParseNextFrame()
	if err != nil {
		return nil, 0, err
	}
	return frame, s.frame, nil
}

func (s *ivfSource) Close() error { return s.f.Close() }

type oggSource struct {
	f *os.File
	r *oggreader.OggReader
}

func openOgg(path string) (frameSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, _, err := oggreader.NewWith(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("ogg %s: %w", path, err)
	}
	return &oggSource{f: f, r: r}, nil
}

func (s *oggSource) Next() ([]byte, time.Duration, error) {
	page, _, err := s.r.ParseNextPage()
	if err != nil {
		return nil, 0, err
	}
	return page, oggPageDuration, nil
}

func (s *oggSource) Close() error { return s.f.Close() }
