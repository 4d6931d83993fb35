// Package stream provides the row currency shared by every relational
// operator and the operators themselves.
//
// A RowStream is a pull-based lazy sequence built on iter.Seq2. Nothing runs
// until the caller ranges over it, and breaking out of the range releases all
// operator state, including open source cursors held by the producers.
//
// Operators compose by wrapping:
//
//	rows := stream.Filter(stream.Number(src), func(r stream.Row) bool {
//	    return r[0] != nil
//	})
//	for row, err := range rows {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(row)
//	}
//
// Scan, Augment, Filter, Join, Remap and Limit are lazy. Sort, GroupReduce,
// Collapse and Distinct buffer by construction.
package stream
