// Package audioconv decodes the audio a chat user can send (wav, mp3,
// ogg/vorbis, ogg/opus) into 16 kHz mono float32 PCM for whisper.cpp.
package audioconv

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

const SampleRate = 16000

var ErrUnsupported = errors.New("unsupported audio format")

var ErrEmpty = errors.New("no audio samples")

type Format string

const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatVorbis  Format = "ogg/vorbis"
	FormatOpus    Format = "ogg/opus"
)

type Options struct {
	// MaxDuration truncates longer audio. Zero keeps everything.
	MaxDuration time.Duration
}

func (o Options) maxSamples() int {
	if o.MaxDuration <= 0 {
		return 0
	}
	return int(o.MaxDuration.Seconds() * SampleRate)
}

// pcm is decoder output before downmix and resampling.
type pcm struct {
	samples  []float32 // interleaved
	rate     int
	channels int
}

// DecodeFile reads path and returns mono samples at SampleRate.
func DecodeFile(ctx context.Context, path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(ctx, f, filepath.Ext(path), opt)
}

// Decode sniffs the container of r, falling back to the ext hint
// (".oga", ".mp3", ...), and decodes it.
func Decode(ctx context.Context, r io.ReadSeeker, ext string, opt Options) ([]float32, error) {
	br := bufio.NewReaderSize(r, 1024)
	head, _ := br.Peek(512)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	format := Sniff(head)
	if format == FormatUnknown {
		format = fromExt(ext)
	}

	var (
		raw pcm
		err error
	)
	switch format {
	case FormatWAV:
		raw, err = decodeWAV(r)
	case FormatMP3:
		raw, err = decodeMP3(r)
	case FormatVorbis:
		raw, err = decodeVorbis(r)
	case FormatOpus:
		raw, err = decodeOpus(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return finish(raw, opt)
}

// Sniff detects the container from the first bytes of a file.
func Sniff(head []byte) Format {
	switch {
	case bytes.HasPrefix(head, []byte("RIFF")) && bytes.Contains(head, []byte("WAVE")):
		return FormatWAV
	case bytes.HasPrefix(head, []byte("OggS")):
		if bytes.Contains(head, []byte("OpusHead")) {
			return FormatOpus
		}
		if bytes.Contains(head, []byte("\x01vorbis")) {
			return FormatVorbis
		}
		return FormatUnknown
	case bytes.HasPrefix(head, []byte("ID3")):
		return FormatMP3
	case len(head) > 1 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return FormatMP3
	}
	return FormatUnknown
}

func fromExt(ext string) Format {
	switch strings.ToLower(ext) {
	case ".wav":
		return FormatWAV
	case ".mp3":
		return FormatMP3
	case ".ogg":
		return FormatVorbis
	case ".oga", ".opus":
		// Telegram voice notes are Opus in an .oga container.
		return FormatOpus
	}
	return FormatUnknown
}

func finish(raw pcm, opt Options) ([]float32, error) {
	if len(raw.samples) == 0 {
		return nil, ErrEmpty
	}
	x := downmix(raw.samples, raw.channels)
	x = resample(x, raw.rate, SampleRate)
	if n := opt.maxSamples(); n > 0 && len(x) > n {
		x = x[:n]
	}
	return x, nil
}

func decodeWAV(r io.ReadSeeker) (pcm, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return pcm{}, errors.New("invalid wav")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return pcm{}, err
	}
	if buf == nil || buf.Data == nil {
		return pcm{}, ErrEmpty
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}
	out := pcm{samples: intsToFloat(buf.Data, depth), rate: 44100, channels: 1}
	if buf.Format != nil {
		if buf.Format.NumChannels > 0 {
			out.channels = buf.Format.NumChannels
		}
		if buf.Format.SampleRate > 0 {
			out.rate = buf.Format.SampleRate
		}
	}
	return out, nil
}

func decodeMP3(r io.Reader) (pcm, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return pcm{}, err
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return pcm{}, err
	}
	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return pcm{}, err
	}

	rate := dec.SampleRate()
	if rate <= 0 {
		rate = 44100
	}
	// go-mp3 always yields 16 bit stereo.
	return pcm{samples: int16sToFloat(ints), rate: rate, channels: 2}, nil
}

func decodeVorbis(r io.Reader) (pcm, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return pcm{}, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return pcm{}, errors.New("invalid ogg/vorbis stream")
	}
	return pcm{samples: samples, rate: format.SampleRate, channels: format.Channels}, nil
}

func decodeOpus(r io.ReadSeeker) (pcm, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return pcm{}, err
	}
	defer dec.Destroy()

	ch := dec.ChannelCount()
	if ch <= 0 {
		ch = 1
	}

	// libopusfile always decodes at 48 kHz.
	out := pcm{rate: 48000, channels: ch}
	buf := make([]int16, 48000*ch/2)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			out.samples = append(out.samples, int16sToFloat(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return pcm{}, err
		}
	}
	return out, nil
}
