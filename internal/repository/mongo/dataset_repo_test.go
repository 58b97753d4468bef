package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/repository/repotest"
)

func TestBuildDocsTagsTenantAndOrder(t *testing.T) {
	ds := repotest.SampleDataset()
	docs := buildDocs("t1", ds)

	require.Len(t, docs.events, 2)
	first := docs.events[0].(eventDoc)
	assert.Equal(t, "t1", first.TenantID)
	assert.Equal(t, 0, first.Seq)
	assert.Equal(t, "evt-1", first.ID)
	assert.Equal(t, "UTC", first.LoggedAt.Location().String())
	assert.True(t, first.LoggedAt.Equal(ds.FoodEvents[0].LoggedAt))

	require.NotNil(t, docs.current)
	assert.Equal(t, "t1", docs.current.TenantID)
	require.NotNil(t, docs.profile.Rules)
	assert.Nil(t, buildDocs("t1", domain.NewDataset()).current)
}

func TestEventDocInlinesFields(t *testing.T) {
	ev := repotest.SampleDataset().FoodEvents[0]
	raw, err := bson.Marshal(eventDoc{TenantID: "t1", Seq: 3, FoodEvent: ev})
	require.NoError(t, err)

	var flat bson.M
	require.NoError(t, bson.Unmarshal(raw, &flat))
	assert.Equal(t, "t1", flat["tenantId"])
	assert.Equal(t, "evt-1", flat["id"])
	assert.Equal(t, "F01", flat["idempotency_key"])

	var back eventDoc
	require.NoError(t, bson.Unmarshal(raw, &back))
	assert.Equal(t, ev.Description, back.Description)
	assert.Nil(t, back.Nutrients.CalciumMg)
	require.NotNil(t, back.Nutrients.IronMg)
	assert.Equal(t, 0.0, *back.Nutrients.IronMg)
	assert.JSONEq(t, string(ev.Items), string(back.Items))
}

func TestBlobText(t *testing.T) {
	assert.Nil(t, blobText(nil))
	assert.Nil(t, blobText([]byte("null")))
	s := blobText([]byte(`{"a":1}`))
	require.NotNil(t, s)
	assert.Equal(t, `{"a":1}`, string(textBlob(s)))
	assert.Nil(t, textBlob(nil))
}
