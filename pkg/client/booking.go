package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"roomly/pkg/model"
)

type Metadata struct {
	TotalCount int64 `json:"total_count"`
	Limit      int   `json:"limit"`
	Offset     int64 `json:"offset"`
}

// BookingClient calls the bookings REST API.
type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseURL string) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *BookingClient) WithToken(token string) *BookingClient {
	c.httpClient.BearerToken = token
	return c
}

func (c *BookingClient) Create(ctx context.Context, req *model.CreateBookingRequest) (*Response, error) {
	return c.httpClient.POST(ctx, "/api/v1/bookings", req)
}

func (c *BookingClient) GetAll(ctx context.Context, limit int, offset int64) (*Response, error) {
	path := fmt.Sprintf("/api/v1/bookings?limit=%d&offset=%d", limit, offset)
	return c.httpClient.GET(ctx, path)
}

func (c *BookingClient) Search(ctx context.Context, resourceID, startTime, endTime string, limit int, offset int64) (*Response, error) {
	q := url.Values{}
	q.Set("resource_id", resourceID)
	if startTime != "" {
		q.Set("start_time", startTime)
	}
	if endTime != "" {
		q.Set("end_time", endTime)
	}
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("offset", fmt.Sprintf("%d", offset))

	return c.httpClient.GET(ctx, "/api/v1/bookings/search?"+q.Encode())
}

func (c *BookingClient) GetByID(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.GET(ctx, "/api/v1/bookings/id/"+url.PathEscape(id))
}

func (c *BookingClient) Update(ctx context.Context, id string, req *model.UpdateBookingRequest) (*Response, error) {
	return c.httpClient.PUT(ctx, "/api/v1/bookings/id/"+url.PathEscape(id), req)
}

func (c *BookingClient) Delete(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.DELETE(ctx, "/api/v1/bookings/id/"+url.PathEscape(id))
}

func (c *BookingClient) UserNotifications(ctx context.Context, userID string, unreadOnly bool) (*Response, error) {
	path := "/api/v1/users/" + url.PathEscape(userID) + "/notifications"
	if unreadOnly {
		path += "?unread=true"
	}
	return c.httpClient.GET(ctx, path)
}

func (c *BookingClient) DecodeBooking(resp *Response) (*model.Booking, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return nil, fmt.Errorf("could not decode booking wrapper (status %d): %w", resp.StatusCode, err)
	}

	var booking model.Booking
	if err := json.Unmarshal(wrapper.Data, &booking); err != nil {
		return nil, fmt.Errorf("could not decode booking json (status %d): %w", resp.StatusCode, err)
	}
	return &booking, nil
}

func (c *BookingClient) DecodeBookings(resp *Response) ([]*model.Booking, *Metadata, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
		Metadata
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return nil, nil, fmt.Errorf("could not decode paginated response (status %d): %w", resp.StatusCode, err)
	}

	var bookings []*model.Booking
	if err := json.Unmarshal(wrapper.Data, &bookings); err != nil {
		return nil, nil, fmt.Errorf("could not decode booking list (status %d): %w", resp.StatusCode, err)
	}

	meta := wrapper.Metadata
	return bookings, &meta, nil
}
