package platform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeHandle(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "natgeo", expected: "natgeo"},
		{input: " @NatGeo ", expected: "natgeo"},
		{input: "https://www.instagram.com/NatGeo/", expected: "natgeo"},
		{input: "https://www.tiktok.com/@NatGeo?lang=en", expected: "natgeo"},
		{input: "https://www.youtube.com/@natgeo/videos", expected: "natgeo"},
		{input: "https://www.youtube.com/channel/UC111", expected: "uc111"},
		{input: "https://www.youtube.com/c/Veritasium/about", expected: "veritasium"},
		{input: "https://www.youtube.com/user/NatGeo", expected: "natgeo"},
		{input: "https://www.facebook.com/profile.php?id=100064", expected: "100064"},
		{input: "https://www.facebook.com/people/Some-Name/100077/", expected: "100077"},
		{input: "https://www.youtube.com/channel/", expected: ""},
		{input: "", expected: ""},
	}

	for _, row := range table {
		require.Equal(t, row.expected, NormalizeHandle(row.input), row.input)
	}
}

func TestIdentityMatches(t *testing.T) {
	id := Identity{Handle: "@Alice", ExternalID: "123"}

	require.True(t, id.Matches("alice", ""))
	require.True(t, id.Matches("ALICE", "999"))
	require.True(t, id.Matches("someone-else", "123"))
	require.False(t, id.Matches("bob", ""))
	require.False(t, id.Matches("", ""))
	require.False(t, Identity{Handle: ""}.Matches("", ""))
}

func TestParse(t *testing.T) {
	p, err := Parse(" Instagram ")
	require.NoError(t, err)
	require.Equal(t, Instagram, p)

	p, err = Parse("x")
	require.NoError(t, err)
	require.Equal(t, Twitter, p)

	_, err = Parse("myspace")
	require.Error(t, err)
}

func TestCanonicalURL(t *testing.T) {
	require.Equal(t, "https://www.tiktok.com/@alice", Profile{Platform: TikTok, Handle: "@alice"}.CanonicalURL())
	require.Equal(t, "https://example.com/x", Profile{Platform: TikTok, Handle: "alice", URL: "https://example.com/x"}.CanonicalURL())
}

func TestExternalIDFromURL(t *testing.T) {
	require.Equal(t, "UC111", ExternalIDFromURL("https://www.youtube.com/channel/UC111/videos"))
	require.Equal(t, "100064", ExternalIDFromURL("https://www.facebook.com/profile.php?id=100064"))
	require.Equal(t, "", ExternalIDFromURL("https://www.youtube.com/@natgeo"))
	require.Equal(t, "", ExternalIDFromURL("natgeo"))
}

func TestValidateHandle(t *testing.T) {
	require.NoError(t, ValidateHandle("natgeo"))
	require.Error(t, ValidateHandle(""))
	require.Error(t, ValidateHandle("channel"))
	require.Error(t, ValidateHandle("profile.php"))
}

func TestChannelURLsDoNotCollide(t *testing.T) {
	id := Identity{Handle: NormalizeHandle("https://www.youtube.com/channel/UC111")}
	require.False(t, id.Matches(NormalizeHandle("https://www.youtube.com/channel/UC999"), ""))
	require.True(t, id.Matches(NormalizeHandle("https://www.youtube.com/channel/UC111/about"), ""))
}
