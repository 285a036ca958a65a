package utils

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         domain.RoleOperator,
	}

	return user, nil
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}

func GenerateRandomID(letterLength int, digitLength int) string {
	random_id := make([]rune, letterLength+digitLength)
	for i := range random_id {
		if i < letterLength {
			random_id[i] = letters[rand.Intn(26)] // 只取小写字母
		} else {
			random_id[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(random_id)
}

var cityNames = []string{
	"广州", "深圳", "珠海", "佛山", "东莞", "中山", "惠州", "江门", "肇庆", "汕头",
	"湛江", "茂名", "韶关", "清远", "阳江", "河源", "梅州", "潮州", "揭阳", "汕尾", "云浮",
}

// GenerateRandomRoutingProblem 在 size x size 的平面上随机生成 n 个城市，第一个城市作为起点
func GenerateRandomRoutingProblem(n int, size float64) *domain.RoutingProblem {
	rp := &domain.RoutingProblem{
		ProblemMeta: domain.ProblemMeta{
			Kind:        domain.ProblemKindRouting,
			Name:        "巡游问题" + GenerateRandomID(3, 3),
			Description: fmt.Sprintf("随机生成的 %d 个城市", n),
		},
		AnchorIndex: 0,
		Cities:      make([]domain.City, n),
	}

	for i := range rp.Cities {
		name := cityNames[i%len(cityNames)]
		if i >= len(cityNames) {
			name += fmt.Sprintf("%d", i/len(cityNames))
		}
		rp.Cities[i] = domain.City{
			Name: name,
			X:    rand.Float64() * size,
			Y:    rand.Float64() * size,
		}
	}

	return rp
}

var subjectNames = []string{
	"高等数学", "线性代数", "概率论", "大学物理", "数据结构", "操作系统", "计算机网络",
	"数据库系统", "编译原理", "离散数学", "大学英语", "电路分析", "信号与系统", "算法设计",
}

var subjectDurations = []float64{1.5, 2, 2.5, 3}

// GenerateSubjectCode 用科目名称拼音的首字母加上随机数字生成科目代码，例如 高等数学 -> GDSX123
func GenerateSubjectCode(name string) string {
	code := ""
	for _, py := range pinyin.LazyConvert(name, nil) {
		if py != "" {
			code += py[:1]
		}
	}
	return strings.ToUpper(code) + GenerateRandomID(0, 3)
}

// GenerateRandomTimetableProblem 随机生成 subjectNum 门科目和 studentNum 个学生，每个学生随机选 1~maxPerStudent 门
func GenerateRandomTimetableProblem(subjectNum int, studentNum int, maxPerStudent int) *domain.TimetableProblem {
	tp := &domain.TimetableProblem{
		ProblemMeta: domain.ProblemMeta{
			Kind:        domain.ProblemKindTimetable,
			Name:        "排考问题" + GenerateRandomID(3, 3),
			Description: fmt.Sprintf("随机生成的 %d 门科目和 %d 个学生", subjectNum, studentNum),
		},
		Subjects: make([]domain.Subject, subjectNum),
		Students: make([]domain.Student, studentNum),
	}

	for i := range tp.Subjects {
		name := subjectNames[i%len(subjectNames)]
		if i >= len(subjectNames) {
			name += fmt.Sprintf("（%d）", i/len(subjectNames)+1)
		}
		tp.Subjects[i] = domain.Subject{
			Code:     GenerateSubjectCode(name),
			Name:     name,
			Duration: subjectDurations[rand.Intn(len(subjectDurations))],
		}
	}

	indexes := make([]int, subjectNum)
	for i := range indexes {
		indexes[i] = i
	}

	for i := range tp.Students {
		tp.Students[i] = domain.Student{
			Name:           GenerateRandomChineseName(),
			SubjectIndexes: GenerateRandomSubset(indexes, maxPerStudent),
		}
	}

	return tp
}

// 使用 Fisher-Yates 洗牌算法来生成一个大小为 1~maxSize 的随机子集
func GenerateRandomSubset(arr []int, maxSize int) []int {
	arrCopy := append([]int{}, arr...) // 复制数组，避免修改原数组

	for i := 0; i < len(arrCopy)-1; i++ {
		j := rand.Intn(len(arrCopy)-i) + i
		arrCopy[i], arrCopy[j] = arrCopy[j], arrCopy[i]
	}

	l := rand.Intn(min(maxSize, len(arrCopy))) + 1
	return arrCopy[:l]
}
