package sqlbuilder

type PlaceholderStyle int

const (
	PlaceholderQuestion PlaceholderStyle = iota
	PlaceholderDollar
)

// Placeholder renders the n-th (1-based) bind placeholder for style.
// SQLite gets numbered "?NNN" parameters so one value can be referenced twice.
func Placeholder(style PlaceholderStyle, n int) string {
	switch style {
	case PlaceholderDollar:
		return "$" + itoa(n)
	default:
		return "?" + itoa(n)
	}
}

// Builder allocates placeholders while collecting their bind values in order.
type Builder struct {
	Style PlaceholderStyle
	args  []any
}

func New(style PlaceholderStyle) *Builder {
	return &Builder{Style: style, args: make([]any, 0)}
}

func (b *Builder) Arg(v any) string {
	b.args = append(b.args, v)
	return Placeholder(b.Style, len(b.args))
}

func (b *Builder) Args() []any { return b.args }
func (b *Builder) Len() int    { return len(b.args) }

// itoa converts int to string without fmt overhead
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [32]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + (n % 10))
		n /= 10
	}
	return string(buf[i:])
}
