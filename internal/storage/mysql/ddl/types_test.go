package ddl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fhvclean/internal/frame"
)

func TestMapType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "BIGINT", MapType("int"))
	assert.Equal(t, "TINYINT(1)", MapType("bool"))
	assert.Equal(t, "DOUBLE", MapType("float"))
	assert.Equal(t, "DATETIME(6)", MapType("timestamp"))
	assert.Equal(t, "DATE", MapType("date"))
	assert.Equal(t, "LONGBLOB", MapType("bytes"))
	assert.Equal(t, "LONGTEXT", MapType("string"))
}

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	got, err := BuildCreateTableSQL("fhv.silver", []frame.Column{
		{Name: "tpep_pickup_datetime", Kind: frame.Timestamp},
		{Name: "pulocation_id", Kind: frame.Int},
	})
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE `fhv`.`silver` (\n  `tpep_pickup_datetime` DATETIME(6),\n  `pulocation_id` BIGINT\n)", got)
	assert.Equal(t, "DROP TABLE IF EXISTS `silver`", BuildDropTableSQL("silver"))
}
