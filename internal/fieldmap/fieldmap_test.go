package fieldmap

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MufengNiu/Paradisec/internal/entity"
	"github.com/MufengNiu/Paradisec/internal/platform/paradisec"
)

func strp(s string) *string { return &s }

func f64p(f float64) *float64 { return &f }

func TestDatasetFields(t *testing.T) {
	meta := paradisec.Metadata{
		ID:        "SC1",
		Name:      strp("Sub one"),
		Publisher: "PARADISEC",
		Contact:   "admin@paradisec.org.au",
		URL:       "https://catalog.paradisec.org.au/collections/SC1",
		License:   strp("CC BY-NC-SA"),
		Rights:    strp("Open"),
	}

	t.Run("sub-collection carries license and rights", func(t *testing.T) {
		d := DatasetFields(meta, nil, true, true)

		assert.Equal(t, "Sub one", d.Name)
		assert.Equal(t, " ", d.Description)
		assert.True(t, d.Public)
		assert.Equal(t, meta.URL, d.SourceURL)
		assert.Equal(t, meta.URL, d.Linkback)
		assert.Equal(t, entity.RecordTypeOther, d.RecordTypeID)
		require.NotNil(t, d.License)
		assert.Equal(t, "CC BY-NC-SA", *d.License)
		require.NotNil(t, d.Rights)
		assert.Equal(t, "Open", *d.Rights)
	})

	t.Run("root never carries license or rights", func(t *testing.T) {
		d := DatasetFields(meta, strp("PARADISEC collections"), false, false)

		assert.Equal(t, "PARADISEC collections", d.Name)
		assert.Nil(t, d.License)
		assert.Nil(t, d.Rights)
	})

	t.Run("flags are independent", func(t *testing.T) {
		d := DatasetFields(meta, nil, true, false)
		assert.NotNil(t, d.License)
		assert.Nil(t, d.Rights)
	})

	t.Run("included but absent upstream stays nil", func(t *testing.T) {
		d := DatasetFields(paradisec.Metadata{ID: "X"}, nil, true, true)
		assert.Nil(t, d.License)
		assert.Nil(t, d.Rights)
		assert.Equal(t, "Unknown", d.Name)
	})

	t.Run("description passes through", func(t *testing.T) {
		m := meta
		m.Description = strp("Recordings from the highlands")
		assert.Equal(t, "Recordings from the highlands", DatasetFields(m, nil, true, true).Description)
	})
}

func TestPlaceFields(t *testing.T) {
	props := paradisec.Properties{
		ID:          "F1",
		Name:        "Site A",
		Description: strp("A site"),
		URL:         "http://x",
		Languages:   strp("Tok Pisin"),
	}
	ts := paradisec.Timestamp(1577836800)
	props.UDateStart = &ts

	p := PlaceFields(props, &paradisec.Geometry{Type: "Point", Coordinates: []byte(`[147.15, -9.47]`)})

	assert.Equal(t, "Site A", p.Title)
	assert.Equal(t, "http://x", p.Source)
	assert.Equal(t, "http://x", p.ExternalURL)
	assert.Equal(t, entity.RecordTypeOther, p.RecordTypeID)
	assert.Equal(t, entity.DatasourceGHAP, p.DatasourceID)
	require.NotNil(t, p.Longitude)
	require.NotNil(t, p.Latitude)
	assert.Equal(t, 147.15, *p.Longitude)
	assert.Equal(t, -9.47, *p.Latitude)
	assert.Equal(t, "2020-01-01", FormatDate(p.DateStart))
	assert.Equal(t, FormatDate(p.DateStart), FormatDate(p.DateEnd))
	require.NotNil(t, p.ExtendedData)
	assert.Contains(t, *p.ExtendedData, `<Data name="Languages">`)
	assert.Nil(t, p.UID)
}

func TestPoint(t *testing.T) {
	tests := []struct {
		name string
		geom *paradisec.Geometry
		ok   bool
	}{
		{"nil geometry", nil, false},
		{"no coordinates", &paradisec.Geometry{Type: "Point"}, false},
		{"null coordinates", &paradisec.Geometry{Coordinates: []byte(`null`)}, false},
		{"three values", &paradisec.Geometry{Coordinates: []byte(`[1, 2, 3]`)}, false},
		{"one value", &paradisec.Geometry{Coordinates: []byte(`[1]`)}, false},
		{"polygon ring", &paradisec.Geometry{Coordinates: []byte(`[[1, 2], [3, 4]]`)}, false},
		{"pair", &paradisec.Geometry{Coordinates: []byte(`[10.5, -20.25]`)}, true},
		{"typed point", &paradisec.Geometry{Type: "Point", Coordinates: []byte(`[10.5, -20.25]`)}, true},
		{"line string", &paradisec.Geometry{Type: "LineString", Coordinates: []byte(`[[10.5, -20.25], [1, 2]]`)}, false},
		{"multi point", &paradisec.Geometry{Type: "MultiPoint", Coordinates: []byte(`[[10.5, -20.25], [1, 2]]`)}, false},
		{"unknown type", &paradisec.Geometry{Type: "Blob", Coordinates: []byte(`[10.5, -20.25]`)}, false},
		{"strings", &paradisec.Geometry{Coordinates: []byte(`["10.5", "-20.25"]`)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pt, ok := Point(tt.geom)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, 10.5, pt.Lon())
				assert.Equal(t, -20.25, pt.Lat())
			}
		})
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	assert.Nil(t, NormalizeTimestamp(nil))

	tests := []struct {
		name string
		raw  float64
		want string
	}{
		{"seconds", 1577836800, "2020-01-01"},
		{"milliseconds", 1577836800000, "2020-01-01"},
		{"late in the day stays on the UTC date", 1577923199, "2020-01-01"},
		{"threshold itself is seconds", 10_000_000_000, "2286-11-20"},
		{"negative seconds", -86400, "1969-12-31"},
		{"negative milliseconds", -86_400_000_000, "1967-04-07"},
		{"fraction truncates", 1577836800.9, "2020-01-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTimestamp(f64p(tt.raw))
			require.NotNil(t, got)
			assert.Equal(t, tt.want, FormatDate(got))
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestNormalizeTimestamp_OutOfRange(t *testing.T) {
	for _, raw := range []float64{1e19, -1e19, math.MaxFloat64, -math.MaxFloat64, 1e300, math.NaN(), math.Inf(1), 253402300800000 * 10} {
		assert.Nil(t, NormalizeTimestamp(f64p(raw)), "raw %v", raw)
	}

	last := NormalizeTimestamp(f64p(253402300799000))
	require.NotNil(t, last)
	assert.Equal(t, "9999-12-31", FormatDate(last))
	first := NormalizeTimestamp(f64p(-62135596800000))
	require.NotNil(t, first)
	assert.Equal(t, "0001-01-01", FormatDate(first))
	assert.Nil(t, NormalizeTimestamp(f64p(-62135596801000)))
}

func TestNormalizeTimestamp_SecondsAndMillisecondsAgree(t *testing.T) {
	for _, sec := range []float64{1e8, 946684800, 1577836800, 1700000000, 4102444800, -1e8} {
		s := NormalizeTimestamp(f64p(sec))
		ms := NormalizeTimestamp(f64p(sec * 1000))
		require.NotNil(t, s)
		require.NotNil(t, ms)
		assert.Equal(t, FormatDate(s), FormatDate(ms), "seconds %v", sec)
	}
}

func TestPlaceUID(t *testing.T) {
	assert.Equal(t, "", PlaceUID(0, "t"))
	assert.Equal(t, "", PlaceUID(-5, "t"))
	assert.Equal(t, "tff", PlaceUID(255, "t"))
	assert.Equal(t, "t1", PlaceUID(1, DefaultUIDPrefix))

	for _, id := range []int64{1, 9, 10, 16, 4095, 123456789, 1<<62 + 7} {
		uid := PlaceUID(id, "t")
		got, err := ParsePlaceUID(uid, "t")
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}

	_, err := ParsePlaceUID("x12", "t")
	assert.Error(t, err)
	_, err = ParsePlaceUID("t", "t")
	assert.Error(t, err)
	_, err = ParsePlaceUID("tzz", "t")
	assert.Error(t, err)
}

func TestExtendedData(t *testing.T) {
	t.Run("nothing present", func(t *testing.T) {
		assert.Nil(t, ExtendedData(paradisec.Properties{}))
		assert.Nil(t, ExtendedData(paradisec.Properties{Languages: strp("   ")}))
	})

	t.Run("layout matches the dataitem format", func(t *testing.T) {
		got := ExtendedData(paradisec.Properties{ID: " F1 ", Countries: strp("Papua New Guinea")})
		require.NotNil(t, got)
		assert.Equal(t,
			`<ExtendedData>`+
				`<Data name="ID"><value><![CDATA[F1]]></value></Data>`+
				`<Data name="Countries"><value><![CDATA[Papua New Guinea]]></value></Data>`+
				`</ExtendedData>`,
			*got)
	})

	t.Run("round trips awkward values", func(t *testing.T) {
		props := paradisec.Properties{
			ID:        "F<1>&",
			Languages: strp("a]]>b"),
			Publisher: strp("  <b>bold</b>  "),
			Contact:   strp("x@y.z"),
			License:   strp("CC"),
			Rights:    strp("Open ]]]]> closed"),
			Countries: strp(""),
		}
		got := ExtendedData(props)
		require.NotNil(t, got)

		attrs, err := ParseExtendedData(*got)
		require.NoError(t, err)
		assert.Equal(t, []Attribute{
			{"ID", "F<1>&"},
			{"Languages", "a]]>b"},
			{"Publisher", "<b>bold</b>"},
			{"Contact", "x@y.z"},
			{"License", "CC"},
			{"Rights", "Open ]]]]> closed"},
		}, attrs)
	})

	t.Run("values XML cannot carry are base64 encoded", func(t *testing.T) {
		props := paradisec.Properties{
			ID:        "F1",
			Languages: strp("Tok\x0bPisin"),
			Countries: strp("a\r\nb"),
			Rights:    strp("bad \xff byte"),
			License:   strp("nul\x00"),
		}
		got := ExtendedData(props)
		require.NotNil(t, got)
		assert.Contains(t, *got, `<Data name="ID"><value><![CDATA[F1]]></value></Data>`)
		assert.Contains(t, *got, `<Data name="Languages" encoding="base64">`)

		attrs, err := ParseExtendedData(*got)
		require.NoError(t, err)
		assert.Equal(t, []Attribute{
			{"ID", "F1"},
			{"Languages", "Tok\x0bPisin"},
			{"Countries", "a\r\nb"},
			{"License", "nul\x00"},
			{"Rights", "bad \xff byte"},
		}, attrs)
	})

	t.Run("unknown encoding is rejected", func(t *testing.T) {
		_, err := ParseExtendedData(`<ExtendedData><Data name="ID" encoding="rot13"><value>x</value></Data></ExtendedData>`)
		assert.Error(t, err)
	})
}
