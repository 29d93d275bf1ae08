package delivery

import "fmt"

const (
	// TelegramMaxMessage is the Bot API limit for one text message.
	TelegramMaxMessage = 4096
	// DefaultMargin is kept free below the platform limit.
	DefaultMargin = 50
	// DefaultThreshold is the largest chunk count still sent inline.
	DefaultThreshold = 6
	DefaultFilename  = "transcription.txt"
)

type Kind int

const (
	KindEmpty Kind = iota
	KindInline
	KindAttachment
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindInline:
		return "inline"
	case KindAttachment:
		return "attachment"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Plan is the decision of how one body of text reaches the chat.
type Plan struct {
	Kind Kind `json:"kind"`
	// Units are ready to send, headers already applied. Inline only.
	Units []string `json:"units,omitempty"`
	// Content is the original text. Attachment only.
	Content  string `json:"content,omitempty"`
	Filename string `json:"filename,omitempty"`
}

func (p Plan) Empty() bool { return p.Kind == KindEmpty }

// HeaderFunc renders the header of part index (1 based) out of total.
type HeaderFunc func(index, total int) string

func DefaultHeader(index, total int) string {
	return fmt.Sprintf("part %d/%d\n", index, total)
}

// LimitFor derives the unit limit from the platform maximum.
func LimitFor(platformMax, margin int) int {
	return platformMax - margin
}

type Planner struct {
	Limit     int
	Threshold int
	Filename  string
	Header    HeaderFunc
}

// NewPlanner returns a Planner with the reference threshold, filename and
// header for the given limit.
func NewPlanner(limit int) Planner {
	return Planner{
		Limit:     limit,
		Threshold: DefaultThreshold,
		Filename:  DefaultFilename,
		Header:    DefaultHeader,
	}
}

// WithFilename returns a copy of p that names attachments filename.
func (p Planner) WithFilename(filename string) Planner {
	p.Filename = filename
	return p
}

func (p Planner) threshold() int {
	if p.Threshold <= 0 {
		return DefaultThreshold
	}
	return p.Threshold
}

func (p Planner) header() HeaderFunc {
	if p.Header == nil {
		return DefaultHeader
	}
	return p.Header
}

func (p Planner) filename() string {
	if p.Filename == "" {
		return DefaultFilename
	}
	return p.Filename
}

// Plan splits text at the raw limit and decides between inline parts and a
// single attachment. Every inline unit, header included, fits in Limit.
func (p Planner) Plan(text string) (Plan, error) {
	if p.Limit <= 0 {
		return Plan{}, fmt.Errorf("%w: %d", ErrInvalidLimit, p.Limit)
	}
	header := p.header()
	threshold := p.threshold()
	if h := header(threshold, threshold); Len(h) >= p.Limit {
		return Plan{}, fmt.Errorf("%w: header %q does not fit in %d", ErrInvalidLimit, h, p.Limit)
	}

	chunks, err := Split(text, p.Limit)
	if err != nil {
		return Plan{}, err
	}

	switch {
	case len(chunks) == 0:
		return Plan{Kind: KindEmpty}, nil
	case len(chunks) > threshold:
		return Plan{Kind: KindAttachment, Content: text, Filename: p.filename()}, nil
	case len(chunks) == 1:
		return Plan{Kind: KindInline, Units: chunks}, nil
	}

	total := len(chunks)
	units := make([]string, 0, total)
	for i, chunk := range chunks {
		h := header(i+1, total)
		hl := Len(h)
		if hl >= p.Limit {
			return Plan{}, fmt.Errorf("%w: header %q does not fit in %d", ErrInvalidLimit, h, p.Limit)
		}
		if hl+Len(chunk) <= p.Limit {
			units = append(units, h+chunk)
			continue
		}

		parts, err := Split(chunk, p.Limit-hl)
		if err != nil {
			return Plan{}, err
		}
		units = append(units, h+parts[0])
		units = append(units, parts[1:]...)
	}
	return Plan{Kind: KindInline, Units: units}, nil
}
