package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"offer-desk/order"
)

// EngineSuccess 账本接受交易时的 engine_result。
const EngineSuccess = "tesSUCCESS"

var ErrNotConnected = errors.New("ledger url not set")

// Recorder 网关请求指标，由 infrastructure/monitor 实现。
type Recorder interface {
	RecordGatewayRequest(command string)
	RecordGatewayError(command string)
}

// Result submit 命令的返回。
type Result struct {
	EngineResult        string `json:"engine_result"`
	EngineResultCode    int    `json:"engine_result_code"`
	EngineResultMessage string `json:"engine_result_message"`
	TxJSON              struct {
		Hash string `json:"hash"`
	} `json:"tx_json"`
}

type request struct {
	ID      string      `json:"id"`
	Command string      `json:"command"`
	Secret  string      `json:"secret,omitempty"`
	TxJSON  interface{} `json:"tx_json,omitempty"`
}

type response struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	Type         string          `json:"type"`
	Error        string          `json:"error"`
	ErrorMessage string          `json:"error_message"`
	Result       json.RawMessage `json:"result"`
}

// Client 通过 websocket 向账本服务器提交交易，由服务器用 secret 签名。
// 单连接，请求串行发送；连接出错后下一次请求重新拨号。
type Client struct {
	URL     string
	Secret  string
	Dialer  *websocket.Dialer
	Timeout time.Duration
	Limiter *rate.Limiter
	Logger  *zap.Logger
	Metrics Recorder

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewClient 创建客户端；submitRate <= 0 表示不限速。
func NewClient(url, secret string, timeout time.Duration, submitRate float64) *Client {
	c := &Client{
		URL:     url,
		Secret:  secret,
		Dialer:  websocket.DefaultDialer,
		Timeout: timeout,
		Logger:  zap.NewNop(),
	}
	if submitRate > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(submitRate), 1)
	}
	return c
}

// Submit 发送 submit 命令并等待同 id 的响应；engine_result 不是 tesSUCCESS 时返回 *order.SubmitError。
func (c *Client) Submit(ctx context.Context, tx interface{}) (Result, error) {
	const command = "submit"
	c.recordRequest(command)
	res, err := c.submit(ctx, tx)
	if err != nil {
		c.recordError(command)
	}
	return res, err
}

func (c *Client) submit(ctx context.Context, tx interface{}) (Result, error) {
	var res Result
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return res, fmt.Errorf("rate limit: %w", err)
		}
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.connect(ctx)
	if err != nil {
		return res, err
	}
	req := request{ID: uuid.NewString(), Command: "submit", Secret: c.Secret, TxJSON: tx}
	resp, err := c.roundTrip(ctx, conn, req)
	if err != nil {
		c.dropConn()
		return res, err
	}
	if resp.Status == "error" {
		msg := resp.ErrorMessage
		if msg == "" {
			msg = resp.Error
		}
		return res, &order.SubmitError{EngineResult: resp.Error, EngineResultMessage: msg}
	}
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		return res, fmt.Errorf("decode submit result: %w", err)
	}
	if res.EngineResult != EngineSuccess {
		return res, &order.SubmitError{EngineResult: res.EngineResult, EngineResultMessage: res.EngineResultMessage}
	}
	c.logger().Info("ledger accepted transaction",
		zap.String("engineResult", res.EngineResult),
		zap.String("hash", res.TxJSON.Hash),
	)
	return res, nil
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	if c.URL == "" {
		return nil, ErrNotConnected
	}
	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial ledger: %w", err)
	}
	c.logger().Info("ledger connected", zap.String("url", c.URL))
	c.conn = conn
	return conn, nil
}

// roundTrip 写请求后一直读到 id 匹配的响应，其它推送消息丢弃。
func (c *Client) roundTrip(ctx context.Context, conn *websocket.Conn, req request) (response, error) {
	var resp response
	// ctx 取消或超时时关闭连接以打断阻塞的读
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteJSON(req); err != nil {
		return resp, fmt.Errorf("write %s: %w", req.Command, err)
	}
	for {
		resp = response{}
		if err := conn.ReadJSON(&resp); err != nil {
			if ctx.Err() != nil {
				return resp, fmt.Errorf("read %s: %w", req.Command, ctx.Err())
			}
			return resp, fmt.Errorf("read %s: %w", req.Command, err)
		}
		if resp.ID == req.ID {
			return resp, nil
		}
		c.logger().Debug("ledger message skipped", zap.String("type", resp.Type))
	}
}

func (c *Client) dropConn() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Close 关闭当前连接。
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropConn()
	return nil
}

func (c *Client) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Client) recordRequest(command string) {
	if c.Metrics != nil {
		c.Metrics.RecordGatewayRequest(command)
	}
}

func (c *Client) recordError(command string) {
	if c.Metrics != nil {
		c.Metrics.RecordGatewayError(command)
	}
}
