package handlers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSlug(t *testing.T) {
	s, err := resolveSlug("", "Diskusi Publik: Pemilu 2024")
	require.NoError(t, err)
	assert.Equal(t, "diskusi-publik-pemilu-2024", s)

	s, err = resolveSlug("  Custom Slug ", "ignored")
	require.NoError(t, err)
	assert.Equal(t, "custom-slug", s)

	_, err = resolveSlug("", "!!!")
	assert.Error(t, err)
}

func TestJSONDocument(t *testing.T) {
	assert.Equal(t, "[]", jsonDocument(nil, "[]"))
	assert.Nil(t, jsonDocument(json.RawMessage("null"), nil))
	assert.Equal(t, `[{"title":"a"}]`, jsonDocument(json.RawMessage(` [{"title":"a"}] `), "[]"))
}

func TestEventInputDefaults(t *testing.T) {
	in := &eventInput{Title: "Kelas Demokrasi", EventDate: "2025-01-10", Price: 50000}
	values, _, err := in.values()
	require.NoError(t, err)

	get := func(col string) any {
		v, ok := values.Get(col)
		require.True(t, ok, col)
		return v
	}
	assert.Equal(t, "kelas-demokrasi", get("slug"))
	assert.Equal(t, "general", get("category"))
	assert.Equal(t, 0, get("price"), "free events carry no price")
	assert.Equal(t, true, get("is_registration_open"))
	assert.Nil(t, get("capacity"))
}

func TestPublicationInputLinksAuthorsOnlyWhenSent(t *testing.T) {
	in := &publicationInput{Title: "Riset Pemuda", Type: "riset"}
	_, hooks, err := in.values()
	require.NoError(t, err)
	assert.Nil(t, hooks.AfterInsert)

	in.AuthorIDs = []int64{2, 1, 2}
	_, hooks, err = in.values()
	require.NoError(t, err)
	assert.NotNil(t, hooks.AfterInsert)
	assert.NotNil(t, hooks.AfterUpdate)
	assert.Equal(t, []int64{2, 1}, dedupe(in.AuthorIDs))
}

func TestPublicationInputDerivesEnglishSlug(t *testing.T) {
	en := "Youth Research"
	in := &publicationInput{Title: "Riset Pemuda", TitleEn: &en, Type: "riset"}
	values, _, err := in.values()
	require.NoError(t, err)
	v, _ := values.Get("slug_en")
	assert.Equal(t, "youth-research", v)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "Laporan_Tahunan_2024.pdf", sanitizeFilename("Laporan Tahunan 2024.pdf", ".pdf"))
	assert.Equal(t, "passwd.pdf", sanitizeFilename("../../etc/passwd", ".pdf"))
	assert.Equal(t, "file.pdf", sanitizeFilename("???.pdf", ".pdf"))
}

func TestResearchDataInputNormalizesProvince(t *testing.T) {
	code := " id-jk "
	age := 23
	in := &researchDataInput{RegionLive: "West", ProvinceCode: &code, Age: &age}
	values, _, err := in.values()
	require.NoError(t, err)
	got, _ := values.Get("province_code")
	assert.Equal(t, "ID-JK", got)

	unknown := "ID-XX"
	in.ProvinceCode = &unknown
	_, _, err = in.values()
	assert.EqualError(t, err, "Unknown province code")

	assert.Error(t, validate.Struct(&researchDataInput{RegionLive: "North"}))
}
