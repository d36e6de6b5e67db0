package domain

import "time"

// Millis es un timestamp epoch en milisegundos (formato de los documentos persistidos).
type Millis int64

func MillisOf(t time.Time) Millis { return Millis(t.UnixMilli()) }

func (m Millis) Time() time.Time { return time.UnixMilli(int64(m)) }

// QuorumSubscriber: alguien que reaccionó al mensaje de estado y quiere jugar.
type QuorumSubscriber struct {
	UserID       string `json:"id"`
	Tag          string `json:"tag"`
	SubscribedAt Millis `json:"time"`
}

// EnlistDocument es el contenido de enlist.json.
type EnlistDocument struct {
	Subscriptions []QuorumSubscriber `json:"subscriptions"`
}

func (d EnlistDocument) Find(userID string) (QuorumSubscriber, bool) {
	for _, s := range d.Subscriptions {
		if s.UserID == userID {
			return s, true
		}
	}
	return QuorumSubscriber{}, false
}

// Upsert devuelve un documento nuevo; no toca el slice original.
func (d EnlistDocument) Upsert(s QuorumSubscriber) EnlistDocument {
	out := make([]QuorumSubscriber, 0, len(d.Subscriptions)+1)
	found := false
	for _, cur := range d.Subscriptions {
		if cur.UserID == s.UserID {
			out = append(out, s)
			found = true
			continue
		}
		out = append(out, cur)
	}
	if !found {
		out = append(out, s)
	}
	return EnlistDocument{Subscriptions: out}
}

func (d EnlistDocument) Without(userID string) EnlistDocument {
	out := make([]QuorumSubscriber, 0, len(d.Subscriptions))
	for _, cur := range d.Subscriptions {
		if cur.UserID != userID {
			out = append(out, cur)
		}
	}
	return EnlistDocument{Subscriptions: out}
}
