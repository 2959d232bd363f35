package htmlutil

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestVisibleText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html>
<head><title>ignored</title><style>.a{}</style></head>
<body>
	<div>12.3K<span>subscribers</span></div>
	<script>var ytInitialData = {};</script>
	<p>  420
		videos </p>
</body></html>`))
	require.NoError(t, err)

	require.Equal(t, "12.3K subscribers 420 videos", VisibleText(context.Background(), doc))
}

func TestMetaContent(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><head>
<meta name="description" content="plain">
<meta property="og:description" content=" 1M Followers ">
</head></html>`))
	require.NoError(t, err)

	require.Equal(t, "1M Followers", MetaContent(doc, "og:description"))
	require.Equal(t, "plain", MetaContent(doc, "description"))
	require.Equal(t, "", MetaContent(doc, "twitter:description"))
}
