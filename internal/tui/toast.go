package tui

import "time"

// toastTTL is how long a toast stays on screen.
const toastTTL = 3 * time.Second

type toastLevel int

const (
	toastInfo toastLevel = iota
	toastWarn
	toastError
)

type toast struct {
	level   toastLevel
	text    string
	expires time.Time
}

func (t toast) render() string {
	switch t.level {
	case toastWarn:
		return toastWarnStyle.Render(t.text)
	case toastError:
		return toastErrorStyle.Render(t.text)
	default:
		return toastInfoStyle.Render(t.text)
	}
}

// toasts is a small queue; the newest live toast is shown.
type toasts []toast

func (q toasts) push(level toastLevel, text string, now time.Time) toasts {
	return append(q, toast{level: level, text: text, expires: now.Add(toastTTL)})
}

// expire drops toasts past their deadline.
func (q toasts) expire(now time.Time) toasts {
	live := q[:0]
	for _, t := range q {
		if now.Before(t.expires) {
			live = append(live, t)
		}
	}
	return live
}

func (q toasts) current() (toast, bool) {
	if len(q) == 0 {
		return toast{}, false
	}
	return q[len(q)-1], true
}
