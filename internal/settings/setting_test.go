package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soc-console/internal/client"
)

func TestMergeRecords(t *testing.T) {
	records := []client.SettingRecord{
		{ID: "fake.setting.foo", NodeID: "mia-test-001", Value: strPtr("hi"), Title: "Farout",
			Description: "Nearby", Regex: "True|False", RegexFailureMessage: "Wrong!", Default: strPtr("x")},
		{ID: "car", Title: "CCA", Description: "NADA"},
		{ID: "fake.setting.bar", Title: "Barley", Description: "Cocoa"},
	}

	merged := MergeRecords(records)
	require.Len(t, merged, 3)

	foo := merged[0]
	assert.Equal(t, "fake.setting.foo", foo.ID)
	assert.Equal(t, "foo", foo.Name)
	assert.Nil(t, foo.Value)
	assert.Nil(t, foo.Default)
	assert.False(t, foo.DefaultAvailable)
	assert.False(t, foo.Global)
	assert.True(t, foo.NodeOnly)
	assert.Equal(t, "Farout", foo.Title)
	assert.Equal(t, "True|False", foo.Regex)
	assert.Equal(t, map[string]string{"mia-test-001": "hi"}, foo.NodeValues)

	car := merged[1]
	assert.Equal(t, "car", car.Name)
	assert.False(t, car.NodeOnly)
	assert.Empty(t, car.NodeValues)

	assert.Equal(t, "bar", merged[2].Name)
}

func TestMergeRecords_GlobalRecordFillsNodeCreatedSetting(t *testing.T) {
	merged := MergeRecords([]client.SettingRecord{
		{ID: "a.b", NodeID: "n1", Value: strPtr("1")},
		{ID: "a.b", NodeID: "n1", Value: strPtr("2")},
		{ID: "a.b", NodeID: "n2", Value: strPtr("3")},
		{ID: "a.b", Title: "AB", Value: strPtr("global"), Default: strPtr("def")},
	})

	require.Len(t, merged, 1)
	s := merged[0]
	assert.Equal(t, "AB", s.Title)
	assert.Equal(t, "global", *s.Value)
	assert.Equal(t, "def", *s.Default)
	assert.False(t, s.NodeOnly)
	assert.Equal(t, map[string]string{"n1": "2", "n2": "3"}, s.NodeValues)
}

func TestSetting_Matches(t *testing.T) {
	s := &Setting{
		ID:          "fake.setting.foo",
		Name:        "foo",
		Title:       "Farout",
		Description: "Nearby",
		Value:       strPtr("a1"),
		NodeValues:  map[string]string{"mia-test-001": "hi"},
	}

	for _, q := range []string{"foO", "bY", "OUt", "A1", "FaROut", "HI", ""} {
		assert.True(t, s.Matches(q), q)
	}
	assert.False(t, s.Matches("bar"))
	assert.False(t, s.Matches("setting"), "only the trailing id segment is searched")
}

func TestSetting_DisplayDescription(t *testing.T) {
	assert.Equal(t, "some description", (&Setting{ID: "x.y", Description: "some description"}).DisplayDescription())
	assert.Equal(t, "fake.setting.untranslated", (&Setting{ID: "fake.setting.untranslated", Name: "untranslated"}).DisplayDescription())
	assert.Equal(t, advancedDescription, (&Setting{ID: "foo.advanced", Name: "advanced", Multiline: true}).DisplayDescription())
}

func TestSetting_DisplayName(t *testing.T) {
	assert.Equal(t, "Title", (&Setting{Name: "n", Title: "Title"}).DisplayName())
	assert.Equal(t, "n", (&Setting{Name: "n"}).DisplayName())
}

func TestSetting_IsReadOnly(t *testing.T) {
	s := &Setting{ID: "a1"}
	assert.False(t, s.IsReadOnly())
	s.Readonly = true
	assert.True(t, s.IsReadOnly())
	s.Readonly = false
	s.ReadonlyUI = true
	assert.True(t, s.IsReadOnly())
	s.Readonly = true
	assert.True(t, s.IsReadOnly())
}

func TestSetting_IsMultiline(t *testing.T) {
	s := &Setting{}
	assert.False(t, s.IsMultiline())
	s.Multiline = true
	assert.True(t, s.IsMultiline())
}

func TestSetting_Values(t *testing.T) {
	s := &Setting{ID: "x", Value: strPtr("global"), NodeValues: map[string]string{"n1": "override"}}

	assert.Equal(t, "global", s.StoredValue(""))
	assert.Equal(t, "override", s.StoredValue("n1"))
	assert.Equal(t, "", s.StoredValue("n2"))

	assert.Equal(t, "override", s.EffectiveValue("n1"))
	assert.Equal(t, "global", s.EffectiveValue("n2"))
	assert.Equal(t, "global", s.EffectiveValue(""))

	assert.False(t, s.HasDefault())
	s.Default = strPtr("d")
	assert.True(t, s.HasDefault())
	assert.Equal(t, "d", s.DefaultValue())
}

func TestSetting_CloneIsDeep(t *testing.T) {
	s := &Setting{ID: "x", Value: strPtr("v"), NodeValues: map[string]string{"n1": "1"}}
	c := s.Clone()
	c.NodeValues["n2"] = "2"
	*c.Value = "changed"

	assert.Len(t, s.NodeValues, 1)
	assert.Equal(t, "v", *s.Value)
}

func TestNameAndParent(t *testing.T) {
	assert.Equal(t, "c", NameOf("a.b.c"))
	assert.Equal(t, "car", NameOf("car"))
	assert.Equal(t, "a.b", ParentOf("a.b.c"))
	assert.Equal(t, "", ParentOf("car"))
}
