package reader

import (
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
)

// SchemaInfo represents metadata about a single leaf column of a Parquet
// file. The column names exposed to queries are the Name values.
type SchemaInfo struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	PhysicalType string `json:"physical_type"`
	LogicalType  string `json:"logical_type"`
	Required     bool   `json:"required"`
	Optional     bool   `json:"optional"`
	Repeated     bool   `json:"repeated"`

	conv converter
}

// ExtractSchemaInfo opens a Parquet file and describes its leaf columns.
//
// For nested types, field names use dot notation (e.g., "address.street").
func ExtractSchemaInfo(path string) ([]SchemaInfo, error) {
	src, err := OpenParquet(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()
	return src.Schema(), nil
}

// leafSchema describes the leaf columns of schema in column index order,
// which is the order parquet.Value.Column refers to.
func leafSchema(schema *parquet.Schema) ([]SchemaInfo, error) {
	paths := schema.Columns()
	infos := make([]SchemaInfo, 0, len(paths))
	for _, path := range paths {
		leaf, ok := schema.Lookup(path...)
		if !ok {
			return nil, fmt.Errorf("column %s not found in schema", strings.Join(path, "."))
		}
		infos = append(infos, leafInfo(strings.Join(path, "."), leaf))
	}
	return infos, nil
}

func leafInfo(name string, leaf parquet.LeafColumn) SchemaInfo {
	node := leaf.Node
	info := SchemaInfo{
		Name:     name,
		Required: node.Required(),
		Optional: node.Optional(),
		// A repeated parent group makes the leaf repeated as well.
		Repeated: leaf.MaxRepetitionLevel > 0,
	}

	typ := node.Type()
	if typ == nil {
		info.Type, info.PhysicalType = "GROUP", "GROUP"
		return info
	}
	info.PhysicalType = physicalTypeName(typ.Kind())
	if lt := typ.LogicalType(); lt != nil {
		info.LogicalType = lt.String()
	}
	info.Type = userFriendlyType(typ)
	info.conv = converterFor(typ)
	return info
}

// physicalTypeName returns the physical type name of a Parquet kind.
func physicalTypeName(kind parquet.Kind) string {
	switch kind {
	case parquet.Boolean:
		return "BOOLEAN"
	case parquet.Int32:
		return "INT32"
	case parquet.Int64:
		return "INT64"
	case parquet.Int96:
		return "INT96"
	case parquet.Float:
		return "FLOAT"
	case parquet.Double:
		return "DOUBLE"
	case parquet.ByteArray:
		return "BYTE_ARRAY"
	case parquet.FixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	default:
		return "UNKNOWN"
	}
}

// userFriendlyType converts Parquet's physical and logical types into
// simpler, more recognizable type names for end users.
func userFriendlyType(typ parquet.Type) string {
	if lt := typ.LogicalType(); lt != nil {
		switch {
		case lt.UTF8 != nil:
			return "STRING"
		case lt.Enum != nil:
			return "ENUM"
		case lt.UUID != nil:
			return "UUID"
		case lt.Date != nil:
			return "DATE"
		case lt.Time != nil:
			return "TIME"
		case lt.Timestamp != nil:
			return "TIMESTAMP"
		case lt.Decimal != nil:
			return "DECIMAL"
		case lt.Json != nil:
			return "JSON"
		case lt.Bson != nil:
			return "BSON"
		}
	}

	switch typ.Kind() {
	case parquet.Float:
		return "FLOAT32"
	case parquet.Double:
		return "FLOAT64"
	default:
		return physicalTypeName(typ.Kind())
	}
}

// timestampUnit reports the unit of a TIMESTAMP logical type
func timestampUnit(ts *format.TimestampType) timeUnit {
	switch {
	case ts.Unit.Nanos != nil:
		return unitNanos
	case ts.Unit.Micros != nil:
		return unitMicros
	default:
		return unitMillis
	}
}
