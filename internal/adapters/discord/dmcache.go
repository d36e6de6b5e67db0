package discord

import (
	"github.com/coocood/freecache"
)

// dmTTL en segundos; los canales DM no cambian, pero no queremos entradas eternas.
const dmTTL = 24 * 60 * 60

// dmCache guarda userID -> channelID del DM para no llamar a UserChannelCreate cada vez.
type dmCache interface {
	Get(userID string) (string, bool)
	Set(userID, channelID string)
}

type freeDMCache struct {
	c *freecache.Cache
}

// newDMCache con sizeMB <= 0 devuelve un cache que no guarda nada.
func newDMCache(sizeMB int) dmCache {
	if sizeMB <= 0 {
		return noopDMCache{}
	}
	return &freeDMCache{c: freecache.NewCache(sizeMB * 1024 * 1024)}
}

func (f *freeDMCache) Get(userID string) (string, bool) {
	v, err := f.c.Get([]byte(userID))
	if err != nil {
		return "", false
	}
	return string(v), true
}

func (f *freeDMCache) Set(userID, channelID string) {
	_ = f.c.Set([]byte(userID), []byte(channelID), dmTTL)
}

type noopDMCache struct{}

func (noopDMCache) Get(string) (string, bool) { return "", false }
func (noopDMCache) Set(string, string)        {}
