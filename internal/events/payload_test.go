package events

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/convention-service/internal/domain"
)

func TestTopic_IsValid(t *testing.T) {
	for topic := range payloadFactories {
		t.Run(string(topic), func(t *testing.T) {
			assert.True(t, topic.IsValid())
		})
	}

	t.Run("unknown topic", func(t *testing.T) {
		assert.False(t, Topic("application.archived").IsValid())
		assert.False(t, Topic("").IsValid())
	})
}

func TestPayloadRoundTrip(t *testing.T) {
	conventionID := uuid.New()

	t.Run("rejected payload keeps justification and roles", func(t *testing.T) {
		original := &ApplicationRejectedPayload{
			ConventionID:  conventionID,
			Justification: "missing insurance certificate",
			NotifyRoles:   []domain.Role{domain.RoleBeneficiary, domain.RoleEstablishment},
		}

		data, err := MarshalPayload(original)
		require.NoError(t, err)

		decoded, err := UnmarshalPayload(TopicApplicationRejected, data)
		require.NoError(t, err)

		rejected, ok := decoded.(*ApplicationRejectedPayload)
		require.True(t, ok)
		assert.Equal(t, original.ConventionID, rejected.ConventionID)
		assert.Equal(t, "missing insurance certificate", rejected.Justification)
		assert.Equal(t, original.NotifyRoles, rejected.NotifyRoles)
	})

	t.Run("magic link payload keeps email and role", func(t *testing.T) {
		original := &MagicLinkRenewalRequestedPayload{
			ConventionID: conventionID,
			Email:        "jo@example.org",
			Role:         domain.RoleBeneficiary,
		}

		data, err := MarshalPayload(original)
		require.NoError(t, err)

		decoded, err := UnmarshalPayload(TopicMagicLinkRenewalRequested, data)
		require.NoError(t, err)

		renewal, ok := decoded.(*MagicLinkRenewalRequestedPayload)
		require.True(t, ok)
		assert.Equal(t, "jo@example.org", renewal.Email)
		assert.Equal(t, domain.RoleBeneficiary, renewal.Role)
	})
}

func TestUnmarshalPayload_UnknownTopic(t *testing.T) {
	_, err := UnmarshalPayload(Topic("application.archived"), []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event topic")
}

func TestUnmarshalPayload_MalformedData(t *testing.T) {
	_, err := UnmarshalPayload(TopicApplicationSubmitted, []byte(`{not json`))
	require.Error(t, err)
}

func TestPayloadFactoriesCoverEveryTopic(t *testing.T) {
	// Each factory must produce the variant that reports its own topic.
	for topic, factory := range payloadFactories {
		assert.Equal(t, topic, factory().EventTopic())
	}
}
