package apperr

import (
	"log/slog"
	"strings"
)

// Notification is the {title, description, variant} triple handed to the
// toast surface. The core performs no rendering.
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant"`
}

// Notifier receives user-facing notifications. Implementations live in
// the UI layer; the default is a no-op.
type Notifier interface {
	Notify(n Notification)
}

// Telemetry receives capture events for critical errors only. Its absence
// must not affect correctness.
type Telemetry interface {
	Capture(event string, properties map[string]any)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}

type nopTelemetry struct{}

func (nopTelemetry) Capture(string, map[string]any) {}

// NopNotifier is a Notifier that discards everything.
var NopNotifier Notifier = nopNotifier{}

// NopTelemetry is a Telemetry sink that discards everything.
var NopTelemetry Telemetry = nopTelemetry{}

// presentation is the fixed user-display pair per error type.
type presentation struct {
	title       string
	description string
}

var presentations = map[Type]presentation{
	TypeSaveFailed:       {"Speichern fehlgeschlagen", "Die Vorlage konnte nicht gespeichert werden. Bitte versuchen Sie es erneut."},
	TypeLoadFailed:       {"Laden fehlgeschlagen", "Die Daten konnten nicht geladen werden. Bitte versuchen Sie es erneut."},
	TypeDeleteFailed:     {"Löschen fehlgeschlagen", "Die Vorlage konnte nicht gelöscht werden. Bitte versuchen Sie es erneut."},
	TypeNetwork:          {"Netzwerkfehler", "Die Verbindung zum Server ist fehlgeschlagen. Prüfen Sie Ihre Internetverbindung."},
	TypeTimeout:          {"Zeitüberschreitung", "Der Server hat nicht rechtzeitig geantwortet. Bitte versuchen Sie es erneut."},
	TypeMissingTitle:     {"Titel fehlt", "Bitte geben Sie einen Titel für die Vorlage an."},
	TypeMissingCategory:  {"Kategorie fehlt", "Bitte wählen Sie eine Kategorie für die Vorlage."},
	TypeInvalidContent:   {"Ungültiger Inhalt", "Der Vorlageninhalt ist ungültig und kann nicht übernommen werden."},
	TypeNotFound:         {"Nicht gefunden", "Die angeforderte Vorlage existiert nicht."},
	TypePermissionDenied: {"Zugriff verweigert", "Sie haben keine Berechtigung für diese Aktion."},
	TypeUnauthorized:     {"Nicht angemeldet", "Bitte melden Sie sich an, um fortzufahren."},
	TypeSystem:           {"Systemfehler", "Ein unerwarteter Fehler ist aufgetreten. Das Team wurde benachrichtigt."},
	TypeDatabase:         {"Datenbankfehler", "Die Datenbank ist nicht erreichbar. Das Team wurde benachrichtigt."},
	TypeCorruptContent:   {"Inhalt beschädigt", "Der gespeicherte Inhalt ist beschädigt. Das Team wurde benachrichtigt."},
	TypeUnknown:          {"Unbekannter Fehler", "Ein unbekannter Fehler ist aufgetreten. Bitte versuchen Sie es erneut."},
}

// Classifier creates, logs, and dispatches operational errors.
type Classifier struct {
	log       *Log
	notifier  Notifier
	telemetry Telemetry
	logger    *slog.Logger
}

// NewClassifier wires the error layer. Nil collaborators fall back to
// no-ops; a nil logger falls back to slog.Default.
func NewClassifier(log *Log, notifier Notifier, telemetry Telemetry, logger *slog.Logger) *Classifier {
	if log == nil {
		log = NewLog(DefaultLogCapacity)
	}
	if notifier == nil {
		notifier = NopNotifier
	}
	if telemetry == nil {
		telemetry = NopTelemetry
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{log: log, notifier: notifier, telemetry: telemetry, logger: logger}
}

// Log exposes the bounded error log.
func (c *Classifier) Log() *Log {
	return c.log
}

// New builds a classified AppError and appends it to the bounded log.
func (c *Classifier) New(t Type, message string, details any, ctx map[string]any) *AppError {
	e := newError(t, message, details, ctx)
	c.log.Append(e)
	return e
}

// Handle resolves the user-display pair for e, notifies the toast
// surface, and captures a telemetry event for critical severities only.
// It returns the notification for callers that render inline.
func (c *Classifier) Handle(e *AppError) Notification {
	p, ok := presentations[e.Type]
	if !ok {
		p = presentations[TypeUnknown]
	}
	n := Notification{
		Title:       p.title,
		Description: p.description,
		Variant:     string(e.Severity),
	}
	c.notifier.Notify(n)

	c.logger.Error("operational error",
		slog.String("type", string(e.Type)),
		slog.String("severity", string(e.Severity)),
		slog.String("message", e.Message),
		slog.Bool("recoverable", e.Recoverable))

	if e.Severity == SeverityCritical {
		c.telemetry.Capture("critical_error", map[string]any{
			"type":     string(e.Type),
			"message":  e.Message,
			"context":  e.Context,
			"severity": string(e.Severity),
		})
	}
	return n
}

// FromException classifies an arbitrary error by case-insensitive
// substring match on its message. This is a documented best-effort path
// for exceptions from uncontrolled code; collaborators with structured
// errors should construct typed AppErrors directly.
func (c *Classifier) FromException(err error, ctx map[string]any) *AppError {
	if e, ok := err.(*AppError); ok {
		return e
	}

	msg := strings.ToLower(err.Error())
	t := TypeUnknown
	switch {
	case strings.Contains(msg, "fetch") || strings.Contains(msg, "network") || strings.Contains(msg, "connection refused"):
		t = TypeNetwork
	case strings.Contains(msg, "database") || strings.Contains(msg, "sqlite") || strings.Contains(msg, "sql"):
		t = TypeDatabase
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "permission") || strings.Contains(msg, "forbidden"):
		t = TypePermissionDenied
	}
	return c.New(t, err.Error(), err, ctx)
}
