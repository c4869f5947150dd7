// Package cowin содержит клиент API доступности записи на вакцинацию
// (эндпоинт calendarByPin, аутентифицированный и публичный варианты)
package cowin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vaxbot/internal/platform/httpclient"
	"vaxbot/internal/shared"
	"vaxbot/internal/tracking"
)

// browserUA — публичный API отклоняет запросы без браузерного User-Agent
const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:88.0) Gecko/20100101 Firefox/88.0"

// StatusError — ответ API с не-2xx статусом
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d", e.Code)
}

// Client выполняет запросы доступности по пин-коду и дате.
// Схема ответа одинакова для обоих режимов, различаются только URL и
// авторизация.
type Client struct {
	client  *httpclient.Client
	baseURL string
	token   string
}

// New создаёт клиент доступности
func New(c *httpclient.Client, baseURL, token string) *Client {
	return &Client{client: c, baseURL: strings.TrimRight(baseURL, "/"), token: token}
}

// Fetch возвращает центры вакцинации для пин-кода на дату (dd-mm-yyyy).
// Ошибки помечаются как dependency failure.
func (c *Client) Fetch(ctx context.Context, pincode, date string, mode tracking.FetchMode) ([]tracking.Center, error) {
	path := "/appointment/sessions/calendarByPin"
	if mode == tracking.ModePublic {
		path = "/appointment/sessions/public/calendarByPin"
	}

	q := url.Values{}
	q.Set("pincode", pincode)
	q.Set("date", date)

	req, err := http.NewRequest(http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)
	if mode == tracking.ModeAuthenticated && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	resp, err := c.client.Do(cctx, req)
	if err != nil {
		return nil, shared.MarkKind(err, shared.KindDependencyFailure)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return nil, shared.MarkKind(&StatusError{Code: resp.StatusCode}, shared.KindDependencyFailure)
	}

	var out struct {
		Centers []tracking.Center `json:"centers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, shared.MarkKind(err, shared.KindDependencyFailure)
	}
	return out.Centers, nil
}
