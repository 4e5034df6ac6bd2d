package crypto_test

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/Mahmadabid/expense-tracker-sub000/internal/apperrors"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/core/domain"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *crypto.Codec {
	t.Helper()
	key := make([]byte, crypto.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	codec, err := crypto.NewCodec(key)
	require.NoError(t, err)
	return codec
}

func TestNewCodec_RejectsBadKeySize(t *testing.T) {
	_, err := crypto.NewCodec([]byte("too short"))
	assert.Error(t, err)

	_, err = crypto.NewCodecFromHex("abcd")
	assert.Error(t, err)

	_, err = crypto.NewCodecFromHex("not hex at all!!")
	assert.Error(t, err)
}

func TestSealOpen_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	plaintext := []byte(`{"description":"lunch money"}`)
	sealed, err := codec.SealBytes(plaintext)
	require.NoError(t, err)

	// nonceHex:tagHex:cipherHex
	parts := strings.Split(sealed, ":")
	require.Len(t, parts, 3)
	for _, p := range parts {
		_, err := hex.DecodeString(p)
		assert.NoError(t, err)
	}
	assert.True(t, crypto.IsSealed(sealed))

	opened, err := codec.OpenBytes(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestSealBytes_FreshNoncePerCall(t *testing.T) {
	codec := newTestCodec(t)

	first, err := codec.SealBytes([]byte("same plaintext"))
	require.NoError(t, err)
	second, err := codec.SealBytes([]byte("same plaintext"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, strings.Split(first, ":")[0], strings.Split(second, ":")[0])
}

func TestOpenBytes_EmptyInput(t *testing.T) {
	codec := newTestCodec(t)

	opened, err := codec.OpenBytes("")
	assert.NoError(t, err)
	assert.Nil(t, opened)
}

func TestOpenBytes_LegacyPlaintext(t *testing.T) {
	codec := newTestCodec(t)

	_, err := codec.OpenBytes(`{"description":"plain json from before encryption"}`)
	assert.ErrorIs(t, err, crypto.ErrNotSealed)
}

func TestOpenBytes_TamperedCiphertext(t *testing.T) {
	codec := newTestCodec(t)

	sealed, err := codec.SealBytes([]byte("important ledger data"))
	require.NoError(t, err)

	parts := strings.Split(sealed, ":")
	cipherBytes, err := hex.DecodeString(parts[2])
	require.NoError(t, err)
	cipherBytes[0] ^= 0xff
	tampered := parts[0] + ":" + parts[1] + ":" + hex.EncodeToString(cipherBytes)

	_, err = codec.OpenBytes(tampered)
	assert.ErrorIs(t, err, apperrors.ErrDecryption)
}

func TestOpenBytes_WrongKey(t *testing.T) {
	codec := newTestCodec(t)
	sealed, err := codec.SealBytes([]byte("secret"))
	require.NoError(t, err)

	otherKey := make([]byte, crypto.KeySize)
	for i := range otherKey {
		otherKey[i] = byte(255 - i)
	}
	other, err := crypto.NewCodec(otherKey)
	require.NoError(t, err)

	_, err = other.OpenBytes(sealed)
	assert.ErrorIs(t, err, apperrors.ErrDecryption)
}

func TestOpenBytes_MalformedParts(t *testing.T) {
	codec := newTestCodec(t)

	_, err := codec.OpenBytes("zz:zz:zz")
	assert.ErrorIs(t, err, apperrors.ErrDecryption)

	_, err = codec.OpenBytes("ab:cd:ef:gh")
	assert.ErrorIs(t, err, crypto.ErrNotSealed)
}

func TestBundle_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	bundle := domain.SensitiveBundle{
		Description:        "road trip loan",
		Category:           "travel",
		Tags:               []string{"friends", "summer"},
		CounterpartyName:   "Alex",
		OriginalAmount:     decimal.NewFromInt(1000),
		BaseOriginalAmount: decimal.NewFromInt(1000),
		Amount:             decimal.NewFromInt(1200),
		RemainingAmount:    decimal.NewFromInt(800),
	}

	sealed, err := codec.Seal(bundle)
	require.NoError(t, err)

	opened, err := codec.Open(sealed)
	require.NoError(t, err)
	require.NotNil(t, opened)
	assert.Equal(t, bundle.Description, opened.Description)
	assert.Equal(t, bundle.Tags, opened.Tags)
	assert.True(t, bundle.Amount.Equal(opened.Amount))
	assert.True(t, bundle.RemainingAmount.Equal(opened.RemainingAmount))
}
