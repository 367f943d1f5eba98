package notification

import (
	"context"
	"testing"

	"github.com/kyc-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct{ mock.Mock }

func (m *mockStore) Put(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}
func (m *mockStore) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) ListUnread(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]domain.Notification), args.Error(1)
}
func (m *mockStore) MarkAsRead(ctx context.Context, notificationID string) error {
	return m.Called(ctx, notificationID).Error(0)
}

func TestMarkAsRead_OtherUsersNotification(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", UserID: "u2"}, nil)

	_, err := NewService(st).MarkAsRead(context.Background(), "n1", "u1")

	assert.ErrorIs(t, err, domain.ErrForbidden)
	st.AssertNotCalled(t, "MarkAsRead", mock.Anything, mock.Anything)
}

func TestMarkAsRead_HappyPath(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", UserID: "u1"}, nil)
	st.On("MarkAsRead", mock.Anything, "n1").Return(nil)

	n, err := NewService(st).MarkAsRead(context.Background(), "n1", "u1")

	require.NoError(t, err)
	assert.Equal(t, 1, n.Readed)
	st.AssertExpectations(t)
}

func TestMarkAsRead_AlreadyRead(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", UserID: "u1", Readed: 1}, nil)

	_, err := NewService(st).MarkAsRead(context.Background(), "n1", "u1")

	require.NoError(t, err)
	st.AssertNotCalled(t, "MarkAsRead", mock.Anything, mock.Anything)
}

func TestNotify_FillsDefaults(t *testing.T) {
	st := &mockStore{}
	st.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)

	n := &domain.Notification{UserID: "u1", Title: "Verification approved"}
	require.NoError(t, NewService(st).Notify(context.Background(), n))

	assert.NotEmpty(t, n.NotificationID)
	assert.Equal(t, domain.NotificationInfo, n.Type)
	assert.False(t, n.CreatedAt.IsZero())
	assert.Equal(t, 0, n.Readed)
}

func TestNotify_RequiresRecipient(t *testing.T) {
	err := NewService(&mockStore{}).Notify(context.Background(), &domain.Notification{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestListUnread_Capped(t *testing.T) {
	st := &mockStore{}
	st.On("ListUnread", mock.Anything, "u1", unreadLimit).Return([]domain.Notification{{NotificationID: "n1"}}, nil)

	got, err := NewService(st).ListUnread(context.Background(), "u1")

	require.NoError(t, err)
	assert.Len(t, got, 1)
	st.AssertExpectations(t)
}
