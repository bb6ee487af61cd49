// Package progressionclient 移动端/前端使用的进度客户端，缓存最近一次同步的进度
package progressionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"finguard_backend/internal/service"
	"finguard_backend/pkg/logger"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// APIError 服务端返回 success=false 时的错误。
// Status 为 200 表示业务拒绝（例如重复完成）
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsRejected 判断是否为业务拒绝而非请求失败
func IsRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusOK
}

// IsAlreadyCompleted 重复完成同一目标
func IsAlreadyCompleted(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusOK &&
		strings.EqualFold(apiErr.Message, "already completed")
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client

	mu     sync.RWMutex
	cached *service.ProgressionView
}

// New baseURL 需包含 /api 前缀
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s %s (status %d): %w", method, path, resp.StatusCode, err)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

// Refresh 拉取最新进度并更新缓存
func (c *Client) Refresh(ctx context.Context) (*service.ProgressionView, error) {
	var view service.ProgressionView
	if err := c.do(ctx, http.MethodGet, "/progression", nil, &view); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cached = &view
	c.mu.Unlock()
	return &view, nil
}

// Cached 返回缓存副本，从未同步过时为 nil
func (c *Client) Cached() *service.ProgressionView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cached == nil {
		return nil
	}
	cp := *c.cached
	return &cp
}

// mutate 发送修改请求后总是重新同步；业务拒绝时服务端状态也可能已被其他端改变
func (c *Client) mutate(ctx context.Context, path string, body, out interface{}) error {
	err := c.do(ctx, http.MethodPost, path, body, out)
	var apiErr *APIError
	if err != nil && !errors.As(err, &apiErr) {
		return err
	}
	if _, syncErr := c.Refresh(ctx); syncErr != nil {
		logger.Log.Debug("progression resync failed", zap.String("path", path), zap.Error(syncErr))
	}
	return err
}

func (c *Client) CompleteCourse(ctx context.Context, courseID string) (*service.EventResult, error) {
	var res service.EventResult
	if err := c.mutate(ctx, "/progression/courses/complete", map[string]string{"courseId": courseID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) CompleteLesson(ctx context.Context, lessonID string) (*service.EventResult, error) {
	var res service.EventResult
	if err := c.mutate(ctx, "/progression/lessons/complete", map[string]string{"lessonId": lessonID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) CompleteQuiz(ctx context.Context, quizID string, score int) (*service.EventResult, error) {
	body := map[string]interface{}{"quizId": quizID, "score": score}
	var res service.EventResult
	if err := c.mutate(ctx, "/progression/quizzes/complete", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) CompleteScenario(ctx context.Context, scenarioID string) (*service.EventResult, error) {
	var res service.EventResult
	if err := c.mutate(ctx, "/progression/scenarios/complete", map[string]string{"scenarioId": scenarioID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) UseTool(ctx context.Context, toolName string) (*service.EventResult, error) {
	var res service.EventResult
	if err := c.mutate(ctx, "/progression/tools/use", map[string]string{"toolName": toolName}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) UpdateStreak(ctx context.Context) (*service.StreakResult, error) {
	var res service.StreakResult
	if err := c.mutate(ctx, "/progression/streak", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Badges(ctx context.Context) ([]service.UserBadgeView, error) {
	var badges []service.UserBadgeView
	if err := c.do(ctx, http.MethodGet, "/badges/me", nil, &badges); err != nil {
		return nil, err
	}
	return badges, nil
}

func (c *Client) Leaderboard(ctx context.Context, limit int) ([]service.LeaderboardEntry, error) {
	path := "/leaderboard"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var entries []service.LeaderboardEntry
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
