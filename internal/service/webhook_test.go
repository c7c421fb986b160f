package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournament-ledger/internal/ledger"
	"tournament-ledger/internal/models"
	"tournament-ledger/internal/signature"
)

const paymentBody = `{"type":"payment.succeeded","data":{"id":"pay_1","user":{"id":"u1","username":"ann"}}}`

func TestIngest_AdmitsOncePerPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	body, header := signed(paymentBody)

	first, err := f.ingestor.Ingest(ctx, body, header, testSecret, testNow)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdmittedNew, first.Outcome)
	assert.Equal(t, testTID, first.TournamentID)
	assert.Equal(t, int64(200), first.PrizePoolCents)
	assert.Equal(t, "u1", first.Entry.UserID)
	assert.Equal(t, "ann", first.Entry.UserName)
	assert.Equal(t, "pay_1", first.Entry.PaymentID)

	second, err := f.ingestor.Ingest(ctx, body, header, testSecret, testNow)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdmittedDuplicate, second.Outcome)
	assert.Equal(t, int64(200), second.PrizePoolCents)

	entries, err := f.ledger.ListEntries(ctx, testTID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// only the new admission is published
	assert.Len(t, f.publisher.entries(), 1)
}

func TestIngest_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		header  func(body []byte) string
		wantErr error
	}{
		{
			name:    "bad signature",
			body:    paymentBody,
			header:  func([]byte) string { return "t=1700000000,v1=deadbeef" },
			wantErr: ErrInvalidSignature,
		},
		{
			name:    "signature from another secret",
			body:    paymentBody,
			header:  func(b []byte) string { return signature.SignTimestamped(b, "1700000000", "whsec_other") },
			wantErr: ErrInvalidSignature,
		},
		{
			name:    "missing signature",
			body:    paymentBody,
			header:  func([]byte) string { return "" },
			wantErr: ErrInvalidSignature,
		},
		{
			name:    "body is not json",
			body:    `not json`,
			header:  func(b []byte) string { return signature.SignTimestamped(b, "1700000000", testSecret) },
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "payment without id",
			body:    `{"type":"payment.succeeded","data":{"user":{"id":"u1"}}}`,
			header:  func(b []byte) string { return signature.SignTimestamped(b, "1700000000", testSecret) },
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "payment without data",
			body:    `{"type":"payment.succeeded"}`,
			header:  func(b []byte) string { return signature.SignTimestamped(b, "1700000000", testSecret) },
			wantErr: ErrMalformedPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			body := []byte(tt.body)

			res, err := f.ingestor.Ingest(context.Background(), body, tt.header(body), testSecret, testNow)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, OutcomeRejected, res.Outcome)

			snap, err := f.ledger.Snapshot(context.Background(), testTID)
			require.NoError(t, err)
			assert.Empty(t, snap.Entries)
			assert.Zero(t, snap.PrizePoolCents)
		})
	}
}

func TestIngest_IgnoresOtherEvents(t *testing.T) {
	f := newFixture(t)
	body, header := signed(`{"type":"membership.went_valid","data":{"id":"mem_1"}}`)

	res, err := f.ingestor.Ingest(context.Background(), body, header, testSecret, testNow)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)

	snap, err := f.ledger.Snapshot(context.Background(), testTID)
	require.NoError(t, err)
	assert.Empty(t, snap.Entries)
}

func TestIngest_LegacyEventAndSignature(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"type":"payment_succeeded","data":{"id":"pay_9","metadata":{"userId":"meta_user"}}}`)

	res, err := f.ingestor.Ingest(context.Background(), body, signature.SignLegacy(body, testSecret), testSecret, testNow)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdmittedNew, res.Outcome)
	assert.Equal(t, "meta_user", res.Entry.UserID)
	assert.Equal(t, "Player meta_u", res.Entry.UserName)
}

func TestIngest_StorageFailure(t *testing.T) {
	c := newFixture(t).clock
	ingestor := NewWebhookIngestor(brokenLedger{}, c, signature.Verifier{}, nil, nil, discardLogger())
	body, header := signed(paymentBody)

	_, err := ingestor.Ingest(context.Background(), body, header, testSecret, testNow)
	assert.ErrorIs(t, err, ledger.ErrStorageUnavailable)
}

func TestResolveIdentity(t *testing.T) {
	tests := []struct {
		name     string
		data     models.PaymentData
		wantID   string
		wantName string
	}{
		{
			name:     "user id and username",
			data:     models.PaymentData{ID: "pay_1", User: &models.PaymentUser{ID: "u1", Username: "ann"}},
			wantID:   "u1",
			wantName: "ann",
		},
		{
			name:     "whop user id and email",
			data:     models.PaymentData{ID: "pay_1", User: &models.PaymentUser{WhopUserID: "user_abc", Email: "ann@example.com"}},
			wantID:   "user_abc",
			wantName: "ann@example.com",
		},
		{
			name:     "metadata user id",
			data:     models.PaymentData{ID: "pay_1", Metadata: &models.PaymentMetadata{UserID: "m1"}},
			wantID:   "m1",
			wantName: "Player m1",
		},
		{
			name:     "payment id as last resort",
			data:     models.PaymentData{ID: "pay_123456789"},
			wantID:   "pay_123456789",
			wantName: "Player pay_12",
		},
		{
			name:     "prefix counts runes",
			data:     models.PaymentData{ID: "pay_1", User: &models.PaymentUser{ID: "ñandú_player"}},
			wantID:   "ñandú_player",
			wantName: "Player ñandú_",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := ResolveUserID(tt.data)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantName, ResolveUserName(tt.data, id))
		})
	}
}
