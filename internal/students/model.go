package students

import "fmt"

// Student is a row of the students table.
type Student struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:50"`
	Age  int
}

func (Student) TableName() string {
	return "students"
}

func (s Student) String() string {
	return fmt.Sprintf("(%d, %s, %d)", s.ID, s.Name, s.Age)
}

// SeedStudents returns the fixed records the demo inserts.
func SeedStudents() []Student {
	return []Student{
		{Name: "Alice", Age: 25},
		{Name: "Bob", Age: 30},
		{Name: "Charlie", Age: 22},
	}
}
