package vicidial

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
}

func TestWriter_Write(t *testing.T) {
	records := []Record{{ListID: "999", PhoneNumber: "5551234567", FirstName: "Ann", City: "Salem, MA"}}

	t.Run("Should write a timestamped export file", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		w, err := NewWriter(fsys, "/exports")
		require.NoError(t, err)
		w.WithClock(fixedClock)

		path, err := w.Write("abc", records)
		require.NoError(t, err)
		assert.Equal(t, "/exports/vici_export_20250314_092653.csv", path)

		data, err := afero.ReadFile(fsys, path)
		require.NoError(t, err)
		assert.Equal(t,
			"list_id,phone_number,first_name,last_name,address1,city,state,postal_code\n"+
				"999,5551234567,Ann,,,\"Salem, MA\",,\n",
			string(data))
	})

	t.Run("Should never overwrite an existing file", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		w, err := NewWriter(fsys, "/exports")
		require.NoError(t, err)
		w.WithClock(fixedClock)

		first, err := w.Write("job1", records)
		require.NoError(t, err)
		second, err := w.Write("job2", nil)
		require.NoError(t, err)
		third, err := w.Write("job2", nil)
		require.NoError(t, err)

		assert.Equal(t, "/exports/vici_export_20250314_092653.csv", first)
		assert.Equal(t, "/exports/vici_export_20250314_092653_job2.csv", second)
		assert.Equal(t, "/exports/vici_export_20250314_092653_job2_2.csv", third)

		data, err := afero.ReadFile(fsys, first)
		require.NoError(t, err)
		assert.Contains(t, string(data), "5551234567")
	})

	t.Run("Should use a counter without a tag", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		w, err := NewWriter(fsys, "/exports")
		require.NoError(t, err)
		w.WithClock(fixedClock)

		_, err = w.Write("", records)
		require.NoError(t, err)
		path, err := w.Write("", records)
		require.NoError(t, err)
		assert.Equal(t, "/exports/vici_export_20250314_092653_1.csv", path)
	})

	t.Run("Should fail on a read-only filesystem", func(t *testing.T) {
		base := afero.NewMemMapFs()
		require.NoError(t, base.MkdirAll("/exports", 0o755))
		w := &Writer{fs: afero.NewReadOnlyFs(base), dir: "/exports", now: fixedClock}

		_, err := w.Write("job", records)
		assert.Error(t, err)
	})
}
