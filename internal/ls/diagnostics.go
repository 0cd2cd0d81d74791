package ls

import (
	"log/slog"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/DanielWillett/unturned-dat-language-server/internal/source"
)

// publisher sends diagnostics through the most recent client connection.
type publisher struct {
	mu     sync.Mutex
	notify glsp.NotifyFunc
}

func (p *publisher) attach(context *glsp.Context) {
	if context == nil || context.Notify == nil {
		return
	}
	p.mu.Lock()
	p.notify = context.Notify
	p.mu.Unlock()
}

func (p *publisher) PublishDiagnostics(uri string, version *int32, diags []source.Diagnostic) {
	p.mu.Lock()
	notify := p.notify
	p.mu.Unlock()
	if notify == nil {
		slog.Debug("no client to publish diagnostics to", "uri", uri)
		return
	}

	params := protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentUri(uri),
		Diagnostics: toProtocolDiagnostics(diags),
	}
	if version != nil && *version >= 0 {
		v := protocol.UInteger(*version)
		params.Version = &v
	}
	slog.Debug("publishing diagnostics", "uri", uri, "count", len(diags))
	notify(protocol.ServerTextDocumentPublishDiagnostics, params)
}

func toProtocolDiagnostics(diags []source.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, toProtocolDiagnostic(d))
	}
	return out
}

func toProtocolDiagnostic(d source.Diagnostic) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverity(d.Severity)
	diagnostic := protocol.Diagnostic{
		Range:    toProtocolRange(d.Range),
		Severity: &severity,
		Message:  d.Message,
		Source:   &ServerName,
	}
	if d.Code != "" {
		diagnostic.Code = &protocol.IntegerOrString{Value: d.Code}
	}
	for _, tag := range d.Tags {
		diagnostic.Tags = append(diagnostic.Tags, protocol.DiagnosticTag(tag))
	}
	return diagnostic
}

func toProtocolRange(r source.Range) protocol.Range {
	return protocol.Range{
		Start: toProtocolPosition(r.Start),
		End:   toProtocolPosition(r.End),
	}
}

func toProtocolPosition(p source.Position) protocol.Position {
	line, char := p.Line, p.Character
	if line < 0 {
		line = 0
	}
	if char < 0 {
		char = 0
	}
	return protocol.Position{
		Line:      protocol.UInteger(line),
		Character: protocol.UInteger(char),
	}
}
