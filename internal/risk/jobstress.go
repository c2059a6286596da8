package risk

// DefaultJobStress 职业平均压力参考值，产品设计常量。
// 未收录的职业按 defaultJobStressLevel 处理。
const defaultJobStressLevel = 5

// JobStressTable 职业到平均压力等级（1-9）的静态映射。
type JobStressTable map[string]int

// Lookup 返回职业平均压力，未知职业返回默认值 5，不视为错误。
func (t JobStressTable) Lookup(job string) int {
	if level, ok := t[job]; ok {
		return level
	}
	return defaultJobStressLevel
}

// DefaultJobStressTable 返回内置职业压力表。
func DefaultJobStressTable() JobStressTable {
	return JobStressTable{
		"Air Traffic Controller":              9,
		"Surgeon":                             9,
		"Firefighter":                         8,
		"Commercial Airline Pilot":            8,
		"Police Officer":                      8,
		"Corporate Executive":                 7,
		"Journalist":                          7,
		"Emergency Medical Technician (EMT)":  7,
		"Stockbroker":                         7,
		"Event Coordinator":                   6,
		"Teacher":                             6,
		"Nurse":                               6,
		"IT Manager":                          6,
		"Sales Manager":                       6,
		"Social Worker":                       6,
		"Engineer":                            5,
		"Accountant":                          5,
		"Architect":                           5,
		"Electrician":                         5,
		"Customer Service Representative":     5,
		"Administrative Assistant":            4,
		"Graphic Designer":                    4,
		"Librarian":                           3,
		"Data Entry Clerk":                    3,
		"Translator":                          3,
		"Receptionist":                        3,
		"Florist":                             2,
		"Tailor":                              2,
		"Student":                             7,
		"Stay-at-Home Parent":                 7,
	}
}
