package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasRole(t *testing.T) {
	analyst := &Identity{Subject: "a", Role: RoleAnalyst}
	authority := &Identity{Subject: "b", Role: RoleAuthority}
	admin := &Identity{Subject: "c", Role: RoleAdmin}

	assert.True(t, HasRole(analyst, RoleAnalyst))
	assert.False(t, HasRole(analyst, RoleAuthority))
	assert.True(t, HasRole(authority, RoleAnalyst, RoleAuthority))
	assert.True(t, HasRole(admin, RoleAuthority))
	assert.False(t, HasRole(nil, RoleAnalyst))
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(RoleAuthority)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name     string
		identity *Identity
		want     int
	}{
		{"authority", &Identity{Subject: "b", Role: RoleAuthority}, http.StatusNoContent},
		{"admin", &Identity{Subject: "c", Role: RoleAdmin}, http.StatusNoContent},
		{"analyst", &Identity{Subject: "a", Role: RoleAnalyst}, http.StatusForbidden},
		{"anonymous", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/incidents/inc_1/actions", nil)
			if tt.identity != nil {
				req = req.WithContext(WithIdentity(req.Context(), tt.identity))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestActor(t *testing.T) {
	assert.Equal(t, "anonymous", Actor(context.Background()))
	ctx := WithIdentity(context.Background(), &Identity{Subject: "ops-1", Role: RoleAuthority})
	assert.Equal(t, "ops-1", Actor(ctx))
}

func TestStatusWriter_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}
	var w http.ResponseWriter = sw
	f, ok := w.(http.Flusher)
	assert.True(t, ok)
	f.Flush()
	assert.True(t, rec.Flushed)
}
