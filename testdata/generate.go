// Command generate writes sample data for trying virtsql by hand:
//
//	cd testdata && go run generate.go
//	virtsql --db shop=sqlite://shop.db -q "select name, sum(total) as spent from users join shop.orders o on users.id = o.user_id group by name" users.parquet
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/parquet-go/parquet-go"
	_ "modernc.org/sqlite"
)

type User struct {
	ID     int64   `parquet:"id"`
	Name   string  `parquet:"name"`
	Age    int32   `parquet:"age"`
	Active bool    `parquet:"active"`
	Score  float64 `parquet:"score"`
}

var users = []User{
	{ID: 1, Name: "alice", Age: 30, Active: true, Score: 95.5},
	{ID: 2, Name: "bob", Age: 25, Active: false, Score: 82.3},
	{ID: 3, Name: "charlie", Age: 35, Active: true, Score: 88.7},
	{ID: 4, Name: "diana", Age: 28, Active: true, Score: 91.2},
	{ID: 5, Name: "eve", Age: 42, Active: false, Score: 76.8},
}

func writeUsers(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[User](file)
	if _, err := writer.Write(users); err != nil {
		return err
	}
	return writer.Close()
}

func writeCities(path string) error {
	body := "user_id;city\n1;Lisbon\n2;Oslo\n4;Lisbon\n"
	return os.WriteFile(path, []byte(body), 0o644)
}

func writeShop(path string) error {
	_ = os.Remove(path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER, total REAL, placed TEXT)`); err != nil {
		return err
	}
	for i := 1; i <= 12; i++ {
		_, err := db.Exec(`INSERT INTO orders (user_id, total, placed) VALUES (?, ?, ?)`,
			i%5+1, float64(i)*7.25, fmt.Sprintf("2024-%02d-15", i))
		if err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := writeUsers("users.parquet"); err != nil {
		log.Fatal(err)
	}
	if err := writeCities("cities.csv"); err != nil {
		log.Fatal(err)
	}
	if err := writeShop("shop.db"); err != nil {
		log.Fatal(err)
	}
	log.Println("Generated users.parquet, cities.csv (read with 'csv:cities.csv?delimiter=;') and shop.db")
}
