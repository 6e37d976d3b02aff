// Package notify envía notificaciones de escalamiento cuando una
// decisión requiere intervención humana.
package notify

import (
	"fmt"
	"strings"
)

// Notifier despacha una notificación de escalamiento. El envío es
// best-effort desde el punto de vista del caller: un fallo se loguea
// pero no voltea la decisión que lo originó.
type Notifier interface {
	NotifyEscalation(ev Escalation) error
}

// Escalation describe el evento que requiere intervención humana.
type Escalation struct {
	TenantID string
	AgentID  string
	Action   string
	Reason   string
	Outcome  string
	Details  map[string]string
}

// Subject arma el asunto del mensaje.
func (e Escalation) Subject() string {
	return fmt.Sprintf("[cogmesh] escalation required: %s / %s", e.TenantID, e.Action)
}

// TextBody arma el cuerpo en texto plano.
func (e Escalation) TextBody() string {
	var b strings.Builder
	fmt.Fprintf(&b, "An agent operation requires human review.\n\n")
	fmt.Fprintf(&b, "Tenant:  %s\n", e.TenantID)
	fmt.Fprintf(&b, "Agent:   %s\n", e.AgentID)
	fmt.Fprintf(&b, "Action:  %s\n", e.Action)
	fmt.Fprintf(&b, "Outcome: %s\n", e.Outcome)
	fmt.Fprintf(&b, "Reason:  %s\n", e.Reason)
	if len(e.Details) > 0 {
		b.WriteString("\nDetails:\n")
		for k, v := range e.Details {
			fmt.Fprintf(&b, "  %s: %s\n", k, v)
		}
	}
	return b.String()
}

// Noop descarta las notificaciones. Se usa cuando SMTP no está configurado.
type Noop struct{}

func (Noop) NotifyEscalation(Escalation) error { return nil }
