package tcpapi

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/cardea-gate/cardea/internal/cardea/service"
	"github.com/cardea-gate/cardea/internal/cardea/types"
)

// remoteTimeout budgets the whole connect-and-respond exchange. The
// authority is on the same trusted LAN; anything slower counts as offline.
const remoteTimeout = 250 * time.Millisecond

// Client resolves codes against the authority node, falling back to the
// local engine when the network is down. The caller cannot tell which path
// answered; only a well-formed remote reply skips local validation.
type Client struct {
	addr   string
	engine *service.Engine
	log    *zap.Logger
}

func NewClient(addr string, engine *service.Engine, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{addr: addr, engine: engine, log: log}
}

// Resolve returns the decision for one code. A remote reply is
// authoritative and the local store is left untouched; every network
// failure routes to local evaluation of the same inputs. Exactly one path
// handles a request, never both.
func (c *Client) Resolve(ctx context.Context, code string, override bool) types.Decision {
	flag := overrideFalse
	if override {
		flag = overrideTrue
	}

	resp, err := c.roundTrip(ctx, code+":"+flag)
	if err == nil {
		switch resp {
		case respOpen:
			return types.Granted
		case respClose:
			return types.Denied
		}
		err = fmt.Errorf("unrecognized authority reply %q", resp)
	}

	c.log.Info("authority unreachable, validating locally", zap.Error(err))
	return c.engine.Evaluate(ctx, code, override)
}

// Wipe forwards the wipe command to the authority. Best-effort; callers
// only log the error.
func (c *Client) Wipe(ctx context.Context) error {
	resp, err := c.roundTrip(ctx, WipeSentinel)
	if err != nil {
		return err
	}
	if resp != WipeAck {
		return fmt.Errorf("unexpected wipe reply %q", resp)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, msg string) (string, error) {
	dialer := net.Dialer{Timeout: remoteTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(remoteTimeout))

	if _, err := conn.Write([]byte(msg)); err != nil {
		return "", err
	}

	buf := make([]byte, maxMessage)
	n, err := conn.Read(buf)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}
