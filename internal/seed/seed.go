package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/sysu-ecnc-dev/evolver/backend/internal/domain"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/utils"
)

// 选课表中表示已选的取值
var enrolledMarks = map[string]bool{"1": true, "是": true, "✓": true, "√": true}

// parseSubjectHeader 解析形如 "高等数学（2）" 的科目列表头，括号中是考试时长（小时）
func parseSubjectHeader(header string) (string, float64, bool) {
	open := strings.Index(header, "（")
	if open <= 0 || !strings.HasSuffix(header, "）") {
		return "", 0, false
	}

	name := strings.TrimSpace(header[:open])
	durationString := strings.TrimSuffix(header[open+len("（"):], "）")
	duration, err := strconv.ParseFloat(durationString, 64)
	if err != nil {
		return "", 0, false
	}

	return name, duration, true
}

// ParseTimetableCSV 读取选课表：包含 "姓名" 列，其余带时长的列是科目，单元格非空表示该学生选了这门课
func ParseTimetableCSV(r io.Reader, name string) (*domain.TimetableProblem, error) {
	reader := csv.NewReader(r)

	// 读取表头
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}

	nameColumn := -1
	subjectColumns := make(map[int]int) // 列下标 -> 科目下标
	tp := &domain.TimetableProblem{
		ProblemMeta: domain.ProblemMeta{
			Kind: domain.ProblemKindTimetable,
			Name: name,
		},
		Subjects: make([]domain.Subject, 0),
		Students: make([]domain.Student, 0),
	}

	for i, header := range headers {
		if strings.TrimSpace(header) == "姓名" {
			nameColumn = i
			continue
		}

		subjectName, duration, ok := parseSubjectHeader(header)
		if !ok {
			// 表示这个是其他信息列
			continue
		}

		subjectColumns[i] = len(tp.Subjects)
		tp.Subjects = append(tp.Subjects, domain.Subject{
			Code:     utils.GenerateSubjectCode(subjectName),
			Name:     subjectName,
			Duration: duration,
		})
	}

	if nameColumn < 0 || len(tp.Subjects) == 0 {
		return nil, errors.New("没有找到姓名列或科目列")
	}

	for {
		row, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("读取文件失败: %w", err)
		}

		student := domain.Student{
			Name:           row[nameColumn],
			SubjectIndexes: make([]int, 0),
		}
		for i, value := range row {
			subject, ok := subjectColumns[i]
			if ok && enrolledMarks[strings.TrimSpace(value)] {
				student.SubjectIndexes = append(student.SubjectIndexes, subject)
			}
		}

		tp.Students = append(tp.Students, student)
	}

	tp.Description = fmt.Sprintf("从选课表导入的 %d 门科目和 %d 个学生", len(tp.Subjects), len(tp.Students))
	return tp, nil
}

type timetableCreator interface {
	CreateTimetableProblem(tp *domain.TimetableProblem) error
}

// SeedTimetableCSV 把选课表导入为排考问题
func SeedTimetableCSV(r timetableCreator, path string, name string, createdBy int64) {
	file, err := os.Open(path)
	if err != nil {
		slog.Error("打开文件失败", "error", err)
		return
	}
	defer file.Close()

	tp, err := ParseTimetableCSV(file, name)
	if err != nil {
		slog.Error("解析选课表失败", "error", err)
		return
	}
	tp.CreatedBy = createdBy

	if err := utils.ValidateTimetableProblem(tp); err != nil {
		slog.Error("选课表不合法", "error", err)
		return
	}

	if err := r.CreateTimetableProblem(tp); err != nil {
		slog.Error("插入排考问题失败", "error", err)
		return
	}

	slog.Info("插入数据完成", slog.Int64("problem_id", tp.ID), slog.Int("subjects", len(tp.Subjects)), slog.Int("students", len(tp.Students)))
}
