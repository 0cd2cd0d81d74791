package diagnostics

import (
	"github.com/DanielWillett/unturned-dat-language-server/internal/source"
	"github.com/DanielWillett/unturned-dat-language-server/internal/spec"
)

// diagnosticConsumer parses every resolved property's value, collecting
// what the types report.
type diagnosticConsumer struct {
	sink source.Sink
}

func (c *diagnosticConsumer) ResolvedProperty(ctx *spec.ParseContext, _ source.Breadcrumbs) {
	ctx.Diagnostics = c.sink
	if ctx.Property.Deprecated {
		ctx.Report(source.UNT1018.New(ctx.Node.KeyRange, "%s is deprecated.", ctx.Property.Key))
	}
	ctx.Property.Type.TryParseValue(ctx)
}

func (c *diagnosticConsumer) UnresolvedProperty(*source.Property, source.Breadcrumbs) {}
