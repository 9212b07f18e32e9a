package proof_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-keygrant/proof"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub, priv
}

// flip changes one character of s to a different character from the same alphabet.
func flip(s string, i int) string {
	b := []byte(s)
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

func TestParseTokenID(t *testing.T) {
	pub, _ := newKey(t)

	t.Run("valid", func(t *testing.T) {
		id, err := proof.ParseTokenID(hex.EncodeToString(pub))
		require.NoError(t, err)
		require.Equal(t, hex.EncodeToString(pub), id.String())
		require.Equal(t, pub, id.PublicKey())
	})

	t.Run("uppercase normalises", func(t *testing.T) {
		id, err := proof.ParseTokenID(strings.ToUpper(hex.EncodeToString(pub)))
		require.NoError(t, err)
		require.Equal(t, hex.EncodeToString(pub), id.String())
	})

	for _, tc := range []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"short", hex.EncodeToString(pub[:31])},
		{"long", hex.EncodeToString(append(append([]byte{}, pub...), 0))},
		{"odd length", hex.EncodeToString(pub)[:63]},
		{"not hex", strings.Repeat("zz", 32)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := proof.ParseTokenID(tc.in)
			require.Error(t, err)
		})
	}
}

func TestTokenIDText(t *testing.T) {
	pub, _ := newKey(t)
	id, err := proof.TokenIDFromPublicKey(pub)
	require.NoError(t, err)

	text, err := id.MarshalText()
	require.NoError(t, err)

	var back proof.TokenID
	require.NoError(t, back.UnmarshalText(text))
	require.Equal(t, id, back)
	require.False(t, back.IsZero())

	require.Error(t, back.UnmarshalText([]byte("abcd")))

	_, err = proof.TokenIDFromPublicKey(pub[:16])
	require.Error(t, err)
}

func TestVerify(t *testing.T) {
	pub, priv := newKey(t)
	identifier := hex.EncodeToString(pub)
	operand := "1700000000000"
	sig := proof.Sign(priv, proof.ScopeInit, operand)

	t.Run("valid signature", func(t *testing.T) {
		require.True(t, proof.Verify(identifier, sig, proof.ScopeInit, operand))
	})

	t.Run("payload is scope colon operand", func(t *testing.T) {
		raw := ed25519.Sign(priv, []byte("init:"+operand))
		require.Equal(t, sig, proof.Sign(priv, "init", operand))
		require.True(t, ed25519.Verify(pub, proof.Message("init", operand), raw))
	})

	t.Run("mutated scope", func(t *testing.T) {
		for i := range proof.ScopeInit {
			require.False(t, proof.Verify(identifier, sig, flip(proof.ScopeInit, i), operand))
		}
		require.False(t, proof.Verify(identifier, sig, proof.ScopeGrantSession, operand))
	})

	t.Run("mutated operand", func(t *testing.T) {
		for i := range operand {
			require.False(t, proof.Verify(identifier, sig, proof.ScopeInit, flip(operand, i)))
		}
	})

	t.Run("mutated signature", func(t *testing.T) {
		// the last character carries padding bits that may not change the
		// decoded bytes, so every earlier position is checked
		for i := 0; i < len(sig)-1; i++ {
			require.False(t, proof.Verify(identifier, flip(sig, i), proof.ScopeInit, operand), "position %d", i)
		}
	})

	t.Run("other key", func(t *testing.T) {
		otherPub, _ := newKey(t)
		require.False(t, proof.Verify(hex.EncodeToString(otherPub), sig, proof.ScopeInit, operand))
	})

	t.Run("padded or std base64 rejected", func(t *testing.T) {
		require.False(t, proof.Verify(identifier, sig+"=", proof.ScopeInit, operand))
		require.False(t, proof.Verify(identifier, "not base64 !!", proof.ScopeInit, operand))
		require.False(t, proof.Verify(identifier, "", proof.ScopeInit, operand))
	})

	t.Run("identifier not 32 bytes fails regardless", func(t *testing.T) {
		for _, bad := range []string{
			"",
			"00",
			hex.EncodeToString(pub[:31]),
			identifier + "00",
			"zz" + identifier[2:],
		} {
			require.False(t, proof.Verify(bad, sig, proof.ScopeInit, operand), bad)
		}
	})
}

func TestFormatRequestTime(t *testing.T) {
	require.Equal(t, "1700000000000", proof.FormatRequestTime(1700000000000))
	require.Equal(t, "1700000000000.5", proof.FormatRequestTime(1700000000000.5))
	require.Equal(t, "0", proof.FormatRequestTime(0))
	require.Equal(t, "-5", proof.FormatRequestTime(-5))
}

func TestWindow(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	w := proof.NewWindow(func() time.Time { return now }, 0)
	nowMs := float64(now.UnixMilli())

	require.Equal(t, proof.DefaultTolerance, w.Tolerance())

	for _, tc := range []struct {
		name string
		t    float64
		ok   bool
	}{
		{"exact", nowMs, true},
		{"past boundary", nowMs - 300000, true},
		{"future boundary", nowMs + 300000, true},
		{"past outside", nowMs - 300001, false},
		{"future outside", nowMs + 300001, false},
		{"zero", 0, false},
		{"nan", math.NaN(), false},
		{"inf", math.Inf(1), false},
		{"neg inf", math.Inf(-1), false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.ok, w.InWindow(tc.t))
		})
	}

	t.Run("custom tolerance", func(t *testing.T) {
		narrow := proof.NewWindow(func() time.Time { return now }, time.Second)
		require.True(t, narrow.InWindow(nowMs+1000))
		require.False(t, narrow.InWindow(nowMs+1001))
	})

	t.Run("zero value uses defaults", func(t *testing.T) {
		var zero proof.Window
		require.True(t, zero.InWindow(float64(time.Now().UnixMilli())))
	})
}

func TestSeenCache(t *testing.T) {
	pub, _ := newKey(t)
	id, err := proof.TokenIDFromPublicKey(pub)
	require.NoError(t, err)

	c, err := proof.NewSeenCache(time.Minute, 1000)
	require.NoError(t, err)
	defer c.Close()

	require.True(t, c.FirstUse(id, proof.ScopeGrantSession, "1"))
	require.False(t, c.FirstUse(id, proof.ScopeGrantSession, "1"))
	require.True(t, c.FirstUse(id, proof.ScopeInit, "1"))
	require.True(t, c.FirstUse(id, proof.ScopeGrantSession, "2"))
}
