package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/baovptse192440/NongSanProject-sub002/internal/domain"
	pfirestore "github.com/baovptse192440/NongSanProject-sub002/internal/platform/firestore"
	"github.com/baovptse192440/NongSanProject-sub002/internal/repositories"
)

const userCollection = "users"

// UserRepository reads user profiles keyed by Firebase UID.
type UserRepository struct {
	base *pfirestore.BaseRepository[userDocument]
}

var _ repositories.UserRepository = (*UserRepository)(nil)

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	return &UserRepository{base: pfirestore.NewBaseRepository[userDocument](provider, userCollection)}, nil
}

// FindByID loads the user profile by UID.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	if r == nil || r.base == nil {
		return domain.User{}, errors.New("user repository not initialised")
	}
	if strings.TrimSpace(userID) == "" {
		return domain.User{}, errors.New("user id is required")
	}
	doc, err := r.base.Get(ctx, strings.TrimSpace(userID))
	if err != nil {
		return domain.User{}, err
	}
	return decodeUser(doc), nil
}

// ListByRole returns every user holding role.
func (r *UserRepository) ListByRole(ctx context.Context, role domain.UserRole) ([]domain.User, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("user repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("role", "==", string(role))
	})
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, decodeUser(doc))
	}
	return users, nil
}

type userDocument struct {
	FullName  string    `firestore:"fullName"`
	Email     string    `firestore:"email"`
	Phone     string    `firestore:"phone,omitempty"`
	Address   string    `firestore:"address,omitempty"`
	City      string    `firestore:"city,omitempty"`
	State     string    `firestore:"state,omitempty"`
	ZipCode   string    `firestore:"zipCode,omitempty"`
	Role      string    `firestore:"role"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func decodeUser(doc pfirestore.Document[userDocument]) domain.User {
	data := doc.Data
	role := domain.UserRole(strings.ToLower(strings.TrimSpace(data.Role)))
	if role == "" {
		role = domain.UserRoleUser
	}
	return domain.User{
		ID:        doc.ID,
		FullName:  strings.TrimSpace(data.FullName),
		Email:     strings.TrimSpace(data.Email),
		Phone:     strings.TrimSpace(data.Phone),
		Address:   strings.TrimSpace(data.Address),
		City:      strings.TrimSpace(data.City),
		State:     strings.TrimSpace(data.State),
		ZipCode:   strings.TrimSpace(data.ZipCode),
		Role:      role,
		CreatedAt: chooseTime(data.CreatedAt, doc.CreateTime),
		UpdatedAt: chooseTime(data.UpdatedAt, doc.UpdateTime),
	}
}
