package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/restaurant/pkg/errorbank"
)

// Meta keys shared by every list response.
const MetaCount = "count"

type success struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

type failure struct {
	Success bool           `json:"success"`
	Error   problem        `json:"error"`
	Meta    map[string]any `json:"meta,omitempty"`
}

type problem struct {
	Kind    errorbank.Kind `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Builder renders the {success, data, meta} envelope used by every endpoint.
// A recorded error wins over data; its cause is never written to the client.
type Builder struct {
	ctx    echo.Context
	status int
	data   any
	err    error
	meta   map[string]any
}

func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx}
}

// WithStatus overrides the status code. Non-positive codes are ignored.
func (b *Builder) WithStatus(status int) *Builder {
	if status > 0 {
		b.status = status
	}
	return b
}

func (b *Builder) WithData(data any) *Builder {
	b.data = data
	return b
}

func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

func (b *Builder) WithMeta(key string, value any) *Builder {
	if key != "" {
		if b.meta == nil {
			b.meta = map[string]any{}
		}
		b.meta[key] = value
	}
	return b
}

// List sets items as the payload and their number as the count meta. An empty
// or nil result is rendered as [].
func List[T any](b *Builder, items []T) *Builder {
	if items == nil {
		items = []T{}
	}
	return b.WithData(items).WithMeta(MetaCount, len(items))
}

// Build writes the response.
func (b *Builder) Build() error {
	if b.err == nil {
		return b.ctx.JSON(b.statusOr(http.StatusOK), success{Success: true, Data: b.data, Meta: b.meta})
	}

	appErr := errorbank.From(b.err)
	status := b.status
	if status < http.StatusBadRequest {
		status = appErr.StatusCode()
	}
	return b.ctx.JSON(status, failure{
		Error: problem{Kind: appErr.Kind(), Message: appErr.Message(), Details: appErr.Details()},
		Meta:  b.meta,
	})
}

func (b *Builder) statusOr(fallback int) int {
	if b.status == 0 {
		return fallback
	}
	return b.status
}
