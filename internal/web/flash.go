package web

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
)

const flashCookie = "tb_flash"

// Toast kinds. An alert is blocking and rendered as a dialog.
const (
	kindInfo    = "info"
	kindWarning = "warning"
	kindAlert   = "alert"
)

type toast struct {
	Kind    string `json:"k"`
	Message string `json:"m"`
}

// toasts collects the messages raised while handling one request. It is the
// workflow.Notifier the view models report to.
type toasts struct {
	items []toast
}

func (t *toasts) Info(msg string)    { t.items = append(t.items, toast{Kind: kindInfo, Message: msg}) }
func (t *toasts) Warning(msg string) { t.items = append(t.items, toast{Kind: kindWarning, Message: msg}) }
func (t *toasts) alert(msg string)   { t.items = append(t.items, toast{Kind: kindAlert, Message: msg}) }

// persist carries the collected messages across a redirect.
func (t *toasts) persist(w http.ResponseWriter, secure bool) {
	if len(t.items) == 0 {
		return
	}
	data, err := json.Marshal(t.items)
	if err != nil {
		slog.Warn("encoding flash", "error", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// collect splits the flashed and collected messages into the page's toasts
// and its blocking alert, consuming the flash cookie.
func (t *toasts) collect(w http.ResponseWriter, r *http.Request, secure bool) (list []toast, alert string) {
	all := append(popFlash(w, r, secure), t.items...)
	for _, item := range all {
		if item.Kind == kindAlert {
			alert = item.Message
			continue
		}
		list = append(list, item)
	}
	return list, alert
}

func popFlash(w http.ResponseWriter, r *http.Request, secure bool) []toast {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})

	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var items []toast
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	return items
}
