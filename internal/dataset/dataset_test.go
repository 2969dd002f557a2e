package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "version": "1.0",
  "data": [
    {
      "source": "bmj_case_1",
      "document": {
        "title": "Case 1",
        "context": "Patient had fever. BEG__No other symptoms__END.",
        "qas": [
          {
            "query": "The patient was given @placeholder.",
            "answers": [{"text": "aspirin"}, {"text": "acetylsalicylic acid"}]
          }
        ]
      }
    },
    {
      "source": "bmj_case_2",
      "document": {
        "context": "Missing title here.",
        "qas": []
      }
    }
  ]
}`

func writeCorpus(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "train1.0.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	corpus, err := Load(writeCorpus(t, sampleJSON))
	require.NoError(t, err)

	require.Len(t, corpus.Data, 2)
	rec := corpus.Data[0]
	assert.Equal(t, "bmj_case_1", rec.Source)

	title, err := rec.Title()
	require.NoError(t, err)
	assert.Equal(t, "Case 1", title)

	require.Len(t, rec.Document.QAs, 1)
	qa := rec.Document.QAs[0]
	assert.Equal(t, "The patient was given @placeholder.", qa.Query)
	require.Len(t, qa.Answers, 2)
	assert.Equal(t, "aspirin", qa.Answers[0].Text)
}

func TestRecord_MissingFields(t *testing.T) {
	corpus, err := Load(writeCorpus(t, sampleJSON))
	require.NoError(t, err)

	rec := corpus.Data[1]
	_, err = rec.Title()
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), "bmj_case_2")

	ctx, err := rec.Context()
	require.NoError(t, err)
	assert.Equal(t, "Missing title here.", ctx)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoad_MalformedJSON(t *testing.T) {
	_, err := Load(writeCorpus(t, "{not json"))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingField))
}
