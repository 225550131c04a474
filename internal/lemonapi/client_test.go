package lemonapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lemonbook/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 7,
		"exp":     exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewClient("/api", time.Second)
	assert.Error(t, err)
}

func TestWorkingHours(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/booking/working_hours", r.URL.Path)
		assert.Equal(t, "Vellore", r.URL.Query().Get("branch"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		writeJSON(w, http.StatusOK, map[string]string{"opening_time": "09:00", "closing_time": "21:00"})
	}))

	hours, err := c.WorkingHours(context.Background(), "Vellore")
	require.NoError(t, err)
	assert.Equal(t, models.WorkingHours{OpeningTime: "09:00", ClosingTime: "21:00"}, *hours)
}

func TestWorkingHours_NotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Branch not found."})
	}))

	_, err := c.WorkingHours(context.Background(), "Nowhere")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
	assert.Contains(t, err.Error(), "404")
}

func TestWorkingHours_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"opening_time": "11:00", "closing_time": "23:00"})
	}))
	c.UseRedisCache(rdb, time.Minute)

	ctx := context.Background()
	first, err := c.WorkingHours(ctx, "Chennai")
	require.NoError(t, err)
	second, err := c.WorkingHours(ctx, "Chennai")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, mr.Exists("lemonbook:hours:Chennai"))
}

func TestBranches(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/booking/branches", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string][]string{"branches": {"Vellore", "Chennai"}})
	}))

	branches, err := c.Branches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Vellore", "Chennai"}, branches)
}

func TestListBookings(t *testing.T) {
	records := []models.Booking{
		{Name: "John", BookingDate: "2025-03-01", Status: "BOOKED"},
		{Name: "Asha", BookingDate: "2025-03-02", Status: "PENDING"},
	}

	t.Run("envelope", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"count": 2, "results": records})
		}))
		got, err := c.ListBookings(context.Background())
		require.NoError(t, err)
		assert.Equal(t, records, got)
	})

	t.Run("bare array", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, records)
		}))
		got, err := c.ListBookings(context.Background())
		require.NoError(t, err)
		assert.Equal(t, records, got)
	})

	t.Run("missing results", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{})
		}))
		got, err := c.ListBookings(context.Background())
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("unauthorized", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		_, err := c.ListBookings(context.Background())
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestListBookings_FollowsNextPages(t *testing.T) {
	var pages []models.Booking
	for d := 1; d <= 12; d++ {
		pages = append(pages, models.Booking{ID: int64(d), Name: fmt.Sprintf("n%d", d), BookingDate: fmt.Sprintf("2025-12-%02d", d)})
	}

	var requests atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/api/booking", r.URL.Path)
		switch r.URL.Query().Get("page") {
		case "":
			next := "http://" + r.Host + "/api/booking?page=2"
			writeJSON(w, http.StatusOK, map[string]any{"count": 12, "next": next, "previous": nil, "results": pages[:10]})
		case "2":
			prev := "http://" + r.Host + "/api/booking"
			writeJSON(w, http.StatusOK, map[string]any{"count": 12, "next": nil, "previous": prev, "results": pages[10:]})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	got, err := c.ListBookings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pages, got)
	assert.Equal(t, int32(2), requests.Load())
}

func TestListBookings_RejectsBadNextLinks(t *testing.T) {
	t.Run("loop", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"next": "/api/booking?page=2", "results": []models.Booking{}})
		}))
		_, err := c.ListBookings(context.Background())
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("other host", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"next": "http://elsewhere.example/api/booking?page=2", "results": []models.Booking{}})
		}))
		_, err := c.ListBookings(context.Background())
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})
}

func TestCreateBooking(t *testing.T) {
	t.Run("sends csrf token from cookie", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "tok123", r.Header.Get(CSRFHeader))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			ck, err := r.Cookie(SessionCookie)
			require.NoError(t, err)
			assert.Equal(t, "sess", ck.Value)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "John", body["name"])
			assert.Equal(t, "2", body["no_of_guests"])

			writeJSON(w, http.StatusCreated, map[string]string{
				"status": "BOOKED", "name": "John", "booking_date": "2025-03-01",
				"start_time": "18:00:00", "end_time": "19:30:00",
			})
		}))
		c.SetSession("sess", "tok123")
		assert.Equal(t, "tok123", c.CSRFToken())

		res, err := c.CreateBooking(context.Background(), models.BookingRequest{"name": "John", "no_of_guests": "2"})
		require.NoError(t, err)
		assert.True(t, res.IsBooked())
		assert.Equal(t, "19:30:00", res.EndTime)
	})

	t.Run("401", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
		}))
		_, err := c.CreateBooking(context.Background(), models.BookingRequest{})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("400 body is decoded", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "One or more slots are already booked. Please try again."})
		}))
		res, err := c.CreateBooking(context.Background(), models.BookingRequest{})
		require.NoError(t, err)
		assert.False(t, res.IsBooked())
		assert.Equal(t, "One or more slots are already booked. Please try again.", res.Message())
	})

	t.Run("non json body", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("<html>oops</html>"))
		}))
		_, err := c.CreateBooking(context.Background(), models.BookingRequest{})
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})
}

func TestLoginAndRefresh(t *testing.T) {
	expired := signedToken(t, time.Now().Add(10*time.Second))
	fresh := signedToken(t, time.Now().Add(time.Hour))

	var refreshed atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "Lemon#2024" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, Tokens{Access: expired, Refresh: "r1"})
	})
	mux.HandleFunc("/api/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "r1", body["refresh"])
		refreshed.Store(true)
		writeJSON(w, http.StatusOK, map[string]string{"access": fresh})
	})
	mux.HandleFunc("/api/booking", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+fresh, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"results": []models.Booking{}})
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	_, err := c.Login(ctx, "john@example.com", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	tokens, err := c.Login(ctx, "john@example.com", "Lemon#2024")
	require.NoError(t, err)
	assert.True(t, tokens.NeedsRefresh(time.Now()))

	_, err = c.ListBookings(ctx)
	require.NoError(t, err)
	assert.True(t, refreshed.Load())
	assert.Equal(t, fresh, c.Tokens().Access)
	assert.Equal(t, "r1", c.Tokens().Refresh)
}

func TestTokens_AccessExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := &Tokens{Access: signedToken(t, exp), Refresh: "r"}

	got, ok := tok.AccessExpiry()
	require.True(t, ok)
	assert.True(t, got.Equal(exp))
	assert.False(t, tok.NeedsRefresh(time.Now()))

	assert.False(t, (&Tokens{Access: "not-a-jwt", Refresh: "r"}).NeedsRefresh(time.Now()))
	assert.False(t, (*Tokens)(nil).NeedsRefresh(time.Now()))
}

func TestWithTokens_SharesNothingMutable(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"results": []models.Booking{}})
	}))
	c.SetSession("sess", "csrf")

	other := c.WithTokens(&Tokens{Access: "a"})
	assert.Equal(t, "", other.CSRFToken())
	assert.Nil(t, c.Tokens())
	assert.Equal(t, "a", other.Tokens().Access)
}

func TestUseRateLimit(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"results": []models.Booking{}})
	}))
	c.UseRateLimit(1000, 1)
	require.NotNil(t, c.limiter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ListBookings(ctx)
	assert.Error(t, err)

	c.UseRateLimit(0, 0)
	assert.Nil(t, c.limiter)
}

func TestURL(t *testing.T) {
	c, err := NewClient("https://lemon.example.com/", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "https://lemon.example.com/login?next=%2Fbook%2F", c.URL("/login?next=%2Fbook%2F"))
}
