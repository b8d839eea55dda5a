package main

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storetrack-backend/pkg/enums"
)

func TestBuildPayloadDefaultsRoleFromKind(t *testing.T) {
	subject, store := uuid.New(), uuid.New()

	payload, err := buildPayload("staff", subject.String(), store.String(), "", "Sam")
	require.NoError(t, err)
	require.Equal(t, enums.PrincipalKindStaff, payload.Kind)
	require.Equal(t, enums.MemberRoleStaff, payload.Role)
	require.Equal(t, subject, payload.SubjectID)
	require.Equal(t, store, payload.StoreID)

	payload, err = buildPayload("user", subject.String(), store.String(), "manager", "")
	require.NoError(t, err)
	require.Equal(t, enums.MemberRoleManager, payload.Role)
}

func TestBuildPayloadRejectsBadInput(t *testing.T) {
	store := uuid.NewString()
	cases := map[string][4]string{
		"unknown kind": {"robot", uuid.NewString(), store, ""},
		"bad subject":  {"user", "nope", store, ""},
		"bad store":    {"user", uuid.NewString(), "nope", ""},
		"bad role":     {"user", uuid.NewString(), store, "cashier"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := buildPayload(in[0], in[1], in[2], in[3], "")
			require.Error(t, err)
		})
	}
}
