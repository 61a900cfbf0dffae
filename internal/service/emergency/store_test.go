package emergency_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/sahara-labs/sahara/backend/internal/model/emergency"
	emergency "github.com/sahara-labs/sahara/backend/internal/service/emergency"
)

func validContacts(n int) []model.Contact {
	all := []model.Contact{
		{Name: "Asha", Phone: "+919876543210", Relationship: model.RelationshipFamily, WhatsAppEnabled: true},
		{Name: "Rahul", Phone: "+911234567890", Relationship: model.RelationshipFriend},
		{Name: "Dr. Mehta", Phone: "+918765432109", Relationship: model.RelationshipTherapist, WhatsAppEnabled: true},
	}
	return all[:n]
}

func TestSaveContactsStoresProfile(t *testing.T) {
	store := emergency.NewStore()
	ctx := context.Background()

	profile, err := store.SaveContacts(ctx, "sess-1", validContacts(2), true)
	require.NoError(t, err)

	assert.Equal(t, "sess-1", profile.SessionID)
	assert.Len(t, profile.Contacts, 2)
	assert.True(t, profile.SetupCompleted)
	assert.True(t, profile.LocationPermission)
	assert.False(t, profile.UpdatedAt.IsZero())
}

func TestSaveContactsAcceptsOneToThree(t *testing.T) {
	for n := 1; n <= 3; n++ {
		store := emergency.NewStore()
		_, err := store.SaveContacts(context.Background(), "sess-1", validContacts(n), false)
		assert.NoError(t, err, "expected %d contacts to be accepted", n)
	}
}

func TestSaveContactsRejectsZeroAndFourPlus(t *testing.T) {
	store := emergency.NewStore()
	ctx := context.Background()

	_, err := store.SaveContacts(ctx, "sess-1", nil, false)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "contacts", verr.Field)

	four := append(validContacts(3), model.Contact{Name: "Extra", Phone: "+911112223334", Relationship: model.RelationshipOther})
	_, err = store.SaveContacts(ctx, "sess-1", four, false)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "contacts", verr.Field)
}

func TestSaveContactsRejectsBadPhone(t *testing.T) {
	cases := []struct {
		name  string
		phone string
	}{
		{"missing plus", "9876543210"},
		{"too short", "+12345"},
		{"too long", "+1234567890123456"},
		{"letters", "+91abc7654321"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := emergency.NewStore()
			contacts := validContacts(1)
			contacts[0].Phone = tc.phone

			_, err := store.SaveContacts(context.Background(), "sess-1", contacts, false)
			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "phone", verr.Field)
		})
	}
}

func TestSaveContactsNormalizesPhoneSeparators(t *testing.T) {
	store := emergency.NewStore()
	contacts := validContacts(1)
	contacts[0].Phone = "+91 98765-43210"

	profile, err := store.SaveContacts(context.Background(), "sess-1", contacts, false)
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", profile.Contacts[0].Phone)
}

func TestSaveContactsRejectsEmptyName(t *testing.T) {
	store := emergency.NewStore()
	contacts := validContacts(1)
	contacts[0].Name = "   "

	_, err := store.SaveContacts(context.Background(), "sess-1", contacts, false)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestSaveContactsRejectsUnknownRelationship(t *testing.T) {
	store := emergency.NewStore()
	contacts := validContacts(1)
	contacts[0].Relationship = "colleague"

	_, err := store.SaveContacts(context.Background(), "sess-1", contacts, false)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "relationship", verr.Field)
}

func TestSaveContactsIsFullReplace(t *testing.T) {
	store := emergency.NewStore()
	ctx := context.Background()

	_, err := store.SaveContacts(ctx, "sess-1", validContacts(3), false)
	require.NoError(t, err)

	_, err = store.SaveContacts(ctx, "sess-1", validContacts(1), true)
	require.NoError(t, err)

	profile, err := store.Profile(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, profile.Contacts, 1)
	assert.Equal(t, "Asha", profile.Contacts[0].Name)
	assert.True(t, profile.LocationPermission)
}

func TestRejectedSaveLeavesPreviousProfile(t *testing.T) {
	store := emergency.NewStore()
	ctx := context.Background()

	_, err := store.SaveContacts(ctx, "sess-1", validContacts(2), false)
	require.NoError(t, err)

	bad := validContacts(1)
	bad[0].Phone = "invalid"
	_, err = store.SaveContacts(ctx, "sess-1", bad, false)
	require.Error(t, err)

	profile, err := store.Profile(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, profile.Contacts, 2, "failed save must not touch stored state")
}

func TestProfileNotFound(t *testing.T) {
	store := emergency.NewStore()

	_, err := store.Profile(context.Background(), "missing")
	assert.True(t, errors.Is(err, model.ErrProfileNotFound))
	assert.False(t, store.HasProfile(context.Background(), "missing"))
}

func TestDeleteProfile(t *testing.T) {
	store := emergency.NewStore()
	ctx := context.Background()

	_, err := store.SaveContacts(ctx, "sess-1", validContacts(1), false)
	require.NoError(t, err)
	require.True(t, store.HasProfile(ctx, "sess-1"))

	require.NoError(t, store.Delete(ctx, "sess-1"))
	assert.False(t, store.HasProfile(ctx, "sess-1"))
	assert.True(t, errors.Is(store.Delete(ctx, "sess-1"), model.ErrProfileNotFound))
}
