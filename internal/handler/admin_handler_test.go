package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apprentix/epa-tracker-api/internal/dto"
	appErrors "github.com/apprentix/epa-tracker-api/pkg/errors"
)

type fakeApprovalSrv struct {
	pending    []dto.PendingRegistration
	pendingErr error
	approveErr error
	rejectErr  error
	approved   []string
	rejected   []string
}

func (f *fakeApprovalSrv) PendingRegistrations(ctx context.Context) ([]dto.PendingRegistration, error) {
	return f.pending, f.pendingErr
}

func (f *fakeApprovalSrv) Approve(ctx context.Context, id string) error {
	f.approved = append(f.approved, id)
	return f.approveErr
}

func (f *fakeApprovalSrv) Reject(ctx context.Context, id string) error {
	f.rejected = append(f.rejected, id)
	return f.rejectErr
}

func TestAdminHandlerPendingRegistrations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeApprovalSrv{pending: []dto.PendingRegistration{
		{ID: "user-1", Forename: "Jane", Surname: "Smith", Email: "jane.smith@example.org"},
	}}
	handler := NewAdminHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/registrations", nil)

	handler.PendingRegistrations(c)

	assert.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "jane.smith@example.org", envelope.Data[0]["email"])
}

func TestAdminHandlerApprove(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeApprovalSrv{}
	handler := NewAdminHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/registrations/user-1/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "user-1"}}

	handler.Approve(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"user-1"}, service.approved)
	assert.Contains(t, rec.Body.String(), "registration approved")
}

func TestAdminHandlerApproveAlreadyProcessed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeApprovalSrv{approveErr: appErrors.ErrAlreadyProcessed}
	handler := NewAdminHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/registrations/user-1/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "user-1"}}

	handler.Approve(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "ALREADY_PROCESSED")
}

func TestAdminHandlerReject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeApprovalSrv{}
	handler := NewAdminHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/registrations/user-2/reject", nil)
	c.Params = gin.Params{{Key: "id", Value: "user-2"}}

	handler.Reject(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"user-2"}, service.rejected)
}
