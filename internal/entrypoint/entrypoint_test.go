package entrypoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/wordflow/internal/config"
)

func TestNewServer(t *testing.T) {
	cfg := &config.Config{
		HTTP:   config.HTTP{Host: "127.0.0.1", Port: 8188},
		Global: config.Global{ReadTimeout: 5 * time.Second},
	}

	srv := newServer(nil, cfg)

	assert.Equal(t, "127.0.0.1:8188", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadTimeout)
}
