package hydrate

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/go-viper/mapstructure/v2"

	"github.com/goliatone/go-subst/layering"
)

// DefaultTagName is the struct tag consulted for field names.
const DefaultTagName = "mapstructure"

// Context identifies the configuration section being decoded.
type Context struct {
	// Section is the key prefix the payload was taken from, empty for the root.
	Section string
}

func (c Context) label() string {
	if c.Section == "" {
		return "<root>"
	}
	return c.Section
}

// PreHook lets callers mutate or normalise the payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the hydrated struct after decoding.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces the default mapstructure decoding when provided.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts resolved configuration trees, whose leaves are strings,
// into strongly typed structs. Strings are weakly converted to the field
// types ("8080" -> int, "true" -> bool, "5s" -> time.Duration).
type Decoder[T any] struct {
	preHooks    []PreHook
	postHooks   []PostHook[T]
	decodeHooks []mapstructure.DecodeHookFunc
	tagName     string
	errorUnused bool
	custom      CustomDecoder[T]
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithTagName changes the struct tag used for field names.
func WithTagName[T any](tag string) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if tag != "" {
			d.tagName = tag
		}
	}
}

// WithErrorUnused fails decoding when the payload has keys the struct does
// not declare.
func WithErrorUnused[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.errorUnused = true
	}
}

// WithDecodeHook appends a mapstructure decode hook.
func WithDecodeHook[T any](hook mapstructure.DecodeHookFunc) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.decodeHooks = append(d.decodeHooks, hook)
		}
	}
}

// WithCustomDecoder replaces the default decoding path.
func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

// NewDecoder builds a Decoder using the `mapstructure` tag.
func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{tagName: DefaultTagName}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts payload into the target struct T applying configured hooks.
// Sections whose keys are exactly "0".."n-1" are treated as lists.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T

	if payload == nil {
		return zero, fmt.Errorf("hydrate: payload is nil for section %q", ctx.label())
	}

	current := layering.Clone(payload)
	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for section %q failed: %w", ctx.label(), err)
		}
		if next != nil {
			current = next
		}
	}

	var result T
	if d.custom != nil {
		decoded, err := d.custom(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: custom decoder for section %q failed: %w", ctx.label(), err)
		}
		result = decoded
	} else {
		hooks := append([]mapstructure.DecodeHookFunc{
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		}, d.decodeHooks...)
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &result,
			TagName:          d.tagName,
			WeaklyTypedInput: true,
			ErrorUnused:      d.errorUnused,
			DecodeHook:       mapstructure.ComposeDecodeHookFunc(hooks...),
		})
		if err != nil {
			return zero, fmt.Errorf("hydrate: configure decoder for section %q: %w", ctx.label(), err)
		}
		if err := decoder.Decode(listify(current)); err != nil {
			return zero, fmt.Errorf("hydrate: decode section %q: %w", ctx.label(), err)
		}
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for section %q failed: %w", ctx.label(), err)
		}
	}

	return result, nil
}

// listify turns index-keyed sections back into slices, recursively.
func listify(value any) any {
	m, ok := value.(map[string]any)
	if !ok {
		return value
	}
	for key, child := range m {
		m[key] = listify(child)
	}
	if len(m) == 0 {
		return m
	}
	indices := make([]int, 0, len(m))
	for key := range m {
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || strconv.Itoa(i) != key {
			return m
		}
		indices = append(indices, i)
	}
	sort.Ints(indices)
	for pos, i := range indices {
		if pos != i {
			return m
		}
	}
	list := make([]any, len(indices))
	for _, i := range indices {
		list[i] = m[strconv.Itoa(i)]
	}
	return list
}
