package organisations_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orgsphere/backend/internal/auth"
	"github.com/orgsphere/backend/internal/models"
	"github.com/orgsphere/backend/internal/organisations"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockStore implements organisations.Store for testing.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context, org *models.Organisation) error {
	args := m.Called(ctx, org)
	if args.Error(0) == nil {
		org.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Organisation, error) {
	args := m.Called(ctx, id)
	var o *models.Organisation
	if v := args.Get(0); v != nil {
		o = v.(*models.Organisation)
	}
	return o, args.Error(1)
}

func (m *MockStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Organisation, error) {
	args := m.Called(ctx, userID)
	var list []*models.Organisation
	if v := args.Get(0); v != nil {
		list = v.([]*models.Organisation)
	}
	return list, args.Error(1)
}

func (m *MockStore) AddMember(ctx context.Context, orgID, userID uuid.UUID) error {
	args := m.Called(ctx, orgID, userID)
	return args.Error(0)
}

func (m *MockStore) IsMemberOrOwner(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, orgID, userID)
	return args.Bool(0), args.Error(1)
}

// MockUserDirectory implements organisations.UserDirectory for testing.
type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	var u *models.User
	if v := args.Get(0); v != nil {
		u = v.(*models.User)
	}
	return u, args.Error(1)
}

func newOrgRouter(store *MockStore, users *MockUserDirectory, callerID uuid.UUID) *gin.Engine {
	h := organisations.NewHandler(store, users, zap.NewNop())
	r := gin.New()
	api := r.Group("/api", func(c *gin.Context) {
		c.Set(auth.ContextUserID, callerID)
		c.Next()
	})
	api.POST("/organisations", h.Create)
	api.GET("/organisations", h.List)
	api.GET("/organisations/:orgId", h.GetByID)
	api.POST("/organisations/:orgId/users", h.AddMember)
	return r
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateOrganisation(t *testing.T) {
	callerID := uuid.New()

	t.Run("caller becomes the owner", func(t *testing.T) {
		store := &MockStore{}
		store.On("Create", mock.Anything, mock.MatchedBy(func(org *models.Organisation) bool {
			return org.Name == "Acme" && org.Description == "widgets" && org.OwnerID == callerID
		})).Return(nil)

		w := doJSON(newOrgRouter(store, &MockUserDirectory{}, callerID), http.MethodPost,
			"/api/organisations", gin.H{"name": "Acme", "description": "widgets"})

		require.Equal(t, http.StatusCreated, w.Code)
		var body struct {
			Status string              `json:"status"`
			Data   models.Organisation `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "success", body.Status)
		assert.Equal(t, "Acme", body.Data.Name)
		assert.NotEqual(t, uuid.Nil, body.Data.ID)
		store.AssertExpectations(t)
	})

	t.Run("missing name is a 422", func(t *testing.T) {
		store := &MockStore{}
		w := doJSON(newOrgRouter(store, &MockUserDirectory{}, callerID), http.MethodPost,
			"/api/organisations", gin.H{"description": "no name"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestListOrganisations(t *testing.T) {
	callerID := uuid.New()

	t.Run("returns caller's organisations", func(t *testing.T) {
		store := &MockStore{}
		store.On("ListForUser", mock.Anything, callerID).Return([]*models.Organisation{
			{ID: uuid.New(), Name: "Jane's Organisation", OwnerID: callerID},
			{ID: uuid.New(), Name: "Acme", OwnerID: uuid.New()},
		}, nil)

		w := doJSON(newOrgRouter(store, &MockUserDirectory{}, callerID), http.MethodGet, "/api/organisations", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Data struct {
				Organisations []models.Organisation `json:"organisations"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Len(t, body.Data.Organisations, 2)
	})

	t.Run("no organisations yields an empty list, not null", func(t *testing.T) {
		store := &MockStore{}
		store.On("ListForUser", mock.Anything, callerID).Return(nil, nil)

		w := doJSON(newOrgRouter(store, &MockUserDirectory{}, callerID), http.MethodGet, "/api/organisations", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"organisations":[]`)
	})
}

func TestGetOrganisation(t *testing.T) {
	callerID := uuid.New()
	orgID := uuid.New()

	t.Run("member can fetch", func(t *testing.T) {
		store := &MockStore{}
		store.On("IsMemberOrOwner", mock.Anything, orgID, callerID).Return(true, nil)
		store.On("GetByID", mock.Anything, orgID).
			Return(&models.Organisation{ID: orgID, Name: "Acme"}, nil)

		w := doJSON(newOrgRouter(store, &MockUserDirectory{}, callerID), http.MethodGet,
			"/api/organisations/"+orgID.String(), nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("non-member sees not found", func(t *testing.T) {
		store := &MockStore{}
		store.On("IsMemberOrOwner", mock.Anything, orgID, callerID).Return(false, nil)

		w := doJSON(newOrgRouter(store, &MockUserDirectory{}, callerID), http.MethodGet,
			"/api/organisations/"+orgID.String(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		store.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}

func TestAddMember(t *testing.T) {
	callerID := uuid.New()
	orgID := uuid.New()
	targetID := uuid.New()
	ownedOrg := &models.Organisation{ID: orgID, Name: "Acme", OwnerID: callerID}

	t.Run("owner adds an existing user", func(t *testing.T) {
		store := &MockStore{}
		users := &MockUserDirectory{}
		store.On("GetByID", mock.Anything, orgID).Return(ownedOrg, nil)
		users.On("GetByID", mock.Anything, targetID).
			Return(&models.User{ID: targetID, Email: "john@x.com"}, nil)
		store.On("AddMember", mock.Anything, orgID, targetID).Return(nil)

		w := doJSON(newOrgRouter(store, users, callerID), http.MethodPost,
			"/api/organisations/"+orgID.String()+"/users", gin.H{"userId": targetID.String()})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "User added to organisation successfully")
		store.AssertExpectations(t)
	})

	t.Run("re-adding a member is a conflict", func(t *testing.T) {
		store := &MockStore{}
		users := &MockUserDirectory{}
		store.On("GetByID", mock.Anything, orgID).Return(ownedOrg, nil)
		users.On("GetByID", mock.Anything, targetID).
			Return(&models.User{ID: targetID}, nil)
		store.On("AddMember", mock.Anything, orgID, targetID).Return(models.ErrAlreadyMember)

		w := doJSON(newOrgRouter(store, users, callerID), http.MethodPost,
			"/api/organisations/"+orgID.String()+"/users", gin.H{"userId": targetID.String()})

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		store := &MockStore{}
		store.On("GetByID", mock.Anything, orgID).
			Return(&models.Organisation{ID: orgID, Name: "Acme", OwnerID: uuid.New()}, nil)

		w := doJSON(newOrgRouter(store, &MockUserDirectory{}, callerID), http.MethodPost,
			"/api/organisations/"+orgID.String()+"/users", gin.H{"userId": targetID.String()})

		assert.Equal(t, http.StatusForbidden, w.Code)
		store.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown organisation is not found", func(t *testing.T) {
		store := &MockStore{}
		store.On("GetByID", mock.Anything, orgID).Return(nil, nil)

		w := doJSON(newOrgRouter(store, &MockUserDirectory{}, callerID), http.MethodPost,
			"/api/organisations/"+orgID.String()+"/users", gin.H{"userId": targetID.String()})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown target user is not found", func(t *testing.T) {
		store := &MockStore{}
		users := &MockUserDirectory{}
		store.On("GetByID", mock.Anything, orgID).Return(ownedOrg, nil)
		users.On("GetByID", mock.Anything, targetID).Return(nil, nil)

		w := doJSON(newOrgRouter(store, users, callerID), http.MethodPost,
			"/api/organisations/"+orgID.String()+"/users", gin.H{"userId": targetID.String()})

		assert.Equal(t, http.StatusNotFound, w.Code)
		store.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed userId is a 422", func(t *testing.T) {
		store := &MockStore{}
		w := doJSON(newOrgRouter(store, &MockUserDirectory{}, callerID), http.MethodPost,
			"/api/organisations/"+orgID.String()+"/users", gin.H{"userId": "not-a-uuid"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
