package exchange

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const BinanceStreamURL = "wss://stream.binance.com:9443/stream"

// PriceStream feeds last-trade prices from the Binance miniTicker websocket
// into registered callbacks. It is an optional fast path; the trading cycle
// falls back to the REST ticker when a streamed price is stale or absent.
type PriceStream struct {
	url string
	log *zap.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	subID     int
	callbacks []func(symbol string, price decimal.Decimal)
}

func NewPriceStream(url string, log *zap.Logger) *PriceStream {
	if url == "" {
		url = BinanceStreamURL
	}
	return &PriceStream{url: url, log: log}
}

// OnPriceUpdate registers a callback invoked for every ticker message.
func (p *PriceStream) OnPriceUpdate(cb func(symbol string, price decimal.Decimal)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = append(p.callbacks, cb)
}

// Connect dials the stream if needed and subscribes the given symbols.
func (p *PriceStream) Connect(symbols []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		c, _, err := websocket.DefaultDialer.Dial(p.url, nil)
		if err != nil {
			return err
		}
		p.conn = c
		go p.readLoop(c)
	}
	return p.subscribe(symbols)
}

func (p *PriceStream) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

// subscribe sends a SUBSCRIBE frame; caller holds the lock.
func (p *PriceStream) subscribe(symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}
	params := make([]string, 0, len(symbols))
	for _, s := range symbols {
		params = append(params, strings.ToLower(s)+"@miniTicker")
	}
	p.subID++
	msg := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     p.subID,
	}
	return p.conn.WriteJSON(msg)
}

func (p *PriceStream) readLoop(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		p.mu.Lock()
		if p.conn == conn {
			p.conn = nil
		}
		p.mu.Unlock()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			p.log.Warn("price stream read error", zap.Error(err))
			return
		}

		var event struct {
			Stream string `json:"stream"`
			Data   struct {
				Symbol string `json:"s"`
				Close  string `json:"c"`
			} `json:"data"`
		}
		if err := json.Unmarshal(message, &event); err != nil {
			continue
		}
		if event.Data.Symbol == "" || event.Data.Close == "" {
			// Subscription acks and control frames have no payload.
			continue
		}

		price, err := decimal.NewFromString(event.Data.Close)
		if err != nil {
			p.log.Warn("price stream bad price",
				zap.String("symbol", event.Data.Symbol),
				zap.String("price", event.Data.Close))
			continue
		}

		p.mu.Lock()
		callbacks := make([]func(string, decimal.Decimal), len(p.callbacks))
		copy(callbacks, p.callbacks)
		p.mu.Unlock()

		for _, cb := range callbacks {
			cb(event.Data.Symbol, price)
		}
	}
}
