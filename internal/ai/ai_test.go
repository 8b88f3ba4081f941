package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestParseLanguage(t *testing.T) {
	cases := map[string]language.Tag{
		"":      language.English,
		"en":    language.English,
		"en-US": language.English,
		"zh":    language.SimplifiedChinese,
		"zh-CN": language.SimplifiedChinese,
		"fr":    language.English,
		"!!":    language.English,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLanguage(in), "input %q", in)
	}
	assert.True(t, IsChinese(ParseLanguage("zh")))
	assert.False(t, IsChinese(ParseLanguage("en")))
}

func TestPromptsCarryInputs(t *testing.T) {
	p := ClassifyPrompt("Greek Yogurt", language.English)
	assert.Contains(t, p, `"Greek Yogurt"`)
	assert.Contains(t, p, "Condiment")
	assert.Contains(t, p, "Respond in English")

	p = RecipesPrompt([]string{"tomato", "egg"}, 0, language.SimplifiedChinese)
	assert.Contains(t, p, "tomato, egg")
	assert.Contains(t, p, "Cook for 1 people")
	assert.Contains(t, p, "简体中文")
}

func TestFailAlwaysYieldsCallError(t *testing.T) {
	cause := errors.New("502 bad gateway")
	err := Fail("openai", OpClassify, cause)

	assert.ErrorIs(t, err, ErrProviderCallFailed)
	assert.ErrorIs(t, err, cause)

	var ce *CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "openai", ce.Provider)
	assert.Equal(t, OpClassify, ce.Op)

	// wrapping twice keeps the original
	again := Fail("other", OpIdentify, fmt.Errorf("outer: %w", err))
	require.ErrorAs(t, again, &ce)
	assert.Equal(t, "openai", ce.Provider)

	assert.ErrorIs(t, Fail("x", OpClassify, nil), ErrProviderCallFailed)
	assert.ErrorIs(t, Fail("x", OpClassify, context.DeadlineExceeded), context.DeadlineExceeded)
}

func TestProviderConfigValidate(t *testing.T) {
	valid := ProviderConfig{ID: "openai", Kind: KindChatCompatible, Model: "gpt-4o-mini", BaseEndpoint: "https://api.openai.com/v1"}
	require.NoError(t, valid.Validate())

	bad := valid
	bad.Kind = "telepathy"
	assert.Error(t, bad.Validate())

	bad = valid
	bad.ID = ""
	assert.Error(t, bad.Validate())

	bad = valid
	bad.BaseEndpoint = "not a url"
	assert.Error(t, bad.Validate())

	assert.False(t, valid.Usable())
	valid.Credential = "sk-test"
	assert.False(t, valid.Usable())
	valid.Enabled = true
	assert.True(t, valid.Usable())
	assert.Equal(t, "********", valid.Redacted().Credential)
	assert.Equal(t, "sk-test", valid.Credential)
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup(KindMultimodal)
	require.Error(t, err)

	var a Adapter
	r.Register(KindMultimodal, a)
	_, err = r.Lookup(KindMultimodal)
	require.NoError(t, err)

	_, err = r.Lookup(KindChatCompatible)
	assert.ErrorContains(t, err, "chat-compatible")
}

func TestImageMIME(t *testing.T) {
	heic := append([]byte{0, 0, 0, 24}, []byte("ftypheic\x00\x00\x00\x00")...)
	cases := map[string]struct {
		in   []byte
		want string
	}{
		"jpeg":    {[]byte{0xff, 0xd8, 0xff, 0xe0}, "image/jpeg"},
		"png":     {[]byte("\x89PNG\r\n\x1a\n"), "image/png"},
		"heic":    {heic, "image/heic"},
		"unknown": {[]byte("not an image"), "application/octet-stream"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ImageMIME(tc.in))
		})
	}
}
