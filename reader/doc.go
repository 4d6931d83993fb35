// Package reader opens data files as tables: a header plus a lazy row stream.
//
// Supported formats are Apache Parquet, CSV and TSV, YAML sequences of
// mappings and JSON lines. Open picks the format from the file extension.
//
// # Basic Usage
//
//	header, rows, err := reader.Open("data.parquet", "", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for row, err := range rows {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(row)
//	}
//
// Files are opened when the stream is ranged over, so a stream can be
// ranged over again to reread the file.
//
// # Multi-file Operations
//
// Parquet reads accept glob patterns. All matching files must share the
// first file's columns, and each row gains a "_file" column with the source
// path:
//
//	header, rows, err := reader.Parquet("data/*.parquet")
//
// # Options
//
// CSV and TSV files take a delimiter option:
//
//	header, rows, err := reader.Open("data.txt", "csv", reader.Options{"delimiter": ";"})
//
// # Schema Introspection
//
//	infos, err := reader.ExtractSchemaInfo("data.parquet")
//	for _, info := range infos {
//	    fmt.Printf("%s: %s\n", info.Name, info.Type)
//	}
package reader
