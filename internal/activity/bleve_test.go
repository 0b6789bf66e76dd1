package activity

import (
	"path/filepath"
	"testing"
	"time"

	"accountsec/internal/models"

	"github.com/blevesearch/bleve/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *BleveClient {
	t.Helper()
	client, err := NewBleveClient(models.ActivityConfiguration{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func sendOutcome(
	t *testing.T, client *BleveClient,
	operation models.Operation, status models.OutcomeStatus, channel models.Channel, at time.Time,
) models.Outcome {
	t.Helper()
	outcome := models.Outcome{
		ID:        uuid.New(),
		Operation: operation,
		Status:    status,
		Channel:   channel,
		Message:   string(operation) + " " + string(status),
		At:        at,
	}
	require.NoError(t, client.Send(outcome))
	return outcome
}

func TestBleveSendAndSearch(t *testing.T) {
	client := newTestClient(t)
	now := time.Now()

	sent := sendOutcome(t, client, models.OpCloseSession, models.OutcomeSuccess, models.ChannelSessions, now)
	sendOutcome(t, client, models.OpChangePassword, models.OutcomeError, models.ChannelPassword, now)

	results, err := client.Search(map[string][]string{"operation": {string(models.OpCloseSession)}}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, sent.ID, got.ID)
	assert.Equal(t, models.OutcomeSuccess, got.Status)
	assert.Equal(t, models.ChannelSessions, got.Channel)
	assert.Equal(t, sent.Message, got.Message)
	assert.WithinDuration(t, now, got.At, time.Second)
}

func TestBleveSearchCriteria(t *testing.T) {
	client := newTestClient(t)
	now := time.Now()

	sendOutcome(t, client, models.OpTwoFactorVerify, models.OutcomeError, models.ChannelTwoFactor, now.Add(-2*time.Second))
	sendOutcome(t, client, models.OpTwoFactorVerify, models.OutcomeSuccess, models.ChannelTwoFactor, now.Add(-time.Second))
	sendOutcome(t, client, models.OpTwoFactorDisable, models.OutcomeSuccess, models.ChannelTwoFactor, now)

	t.Run("values of one field are OR-ed", func(t *testing.T) {
		results, err := client.Search(map[string][]string{
			"operation": {string(models.OpTwoFactorVerify), string(models.OpTwoFactorDisable)},
		}, 10)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("fields are AND-ed", func(t *testing.T) {
		results, err := client.Search(map[string][]string{
			"operation": {string(models.OpTwoFactorVerify)},
			"status":    {string(models.OutcomeSuccess)},
		}, 10)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("newest first and limited", func(t *testing.T) {
		results, err := client.Search(nil, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, models.OpTwoFactorDisable, results[0].Operation)
		assert.True(t, results[0].At.After(results[1].At))
	})
}

func TestBleveCountByStatus(t *testing.T) {
	client := newTestClient(t)
	now := time.Now()

	sendOutcome(t, client, models.OpLoginVerify, models.OutcomeError, models.ChannelLogin, now)
	sendOutcome(t, client, models.OpLoginVerify, models.OutcomeError, models.ChannelLogin, now)
	sendOutcome(t, client, models.OpLoginVerify, models.OutcomeSuccess, models.ChannelLogin, now)
	sendOutcome(t, client, models.OpLogout, models.OutcomeSuccess, models.ChannelSessions, now)

	counts, err := client.CountByStatus(map[string][]string{"operation": {string(models.OpLoginVerify)}})
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.OutcomeError])
	assert.Equal(t, 1, counts[models.OutcomeSuccess])
}

func TestBleveOnDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "activity.bleve")
	config := models.ActivityConfiguration{Directory: dir}

	client, err := NewBleveClient(config)
	require.NoError(t, err)
	sendOutcome(t, client, models.OpExportCodes, models.OutcomeSuccess, models.ChannelTwoFactor, time.Now())
	require.NoError(t, client.Close())

	t.Run("reopen keeps entries", func(t *testing.T) {
		reopened, err := NewBleveClient(config)
		require.NoError(t, err)
		defer reopened.Close()

		results, err := reopened.Search(nil, 10)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("schema change recreates the index", func(t *testing.T) {
		index, err := bleve.Open(dir)
		require.NoError(t, err)
		require.NoError(t, index.SetInternal(schemaVersionKey, []byte("0")))
		require.NoError(t, index.Close())

		recreated, err := NewBleveClient(config)
		require.NoError(t, err)
		defer recreated.Close()

		results, err := recreated.Search(nil, 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}
