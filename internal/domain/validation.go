package domain

import (
	"net/mail"
	"strings"
)

// 50 MiB
const MaxUploadBytes int64 = 50 << 20

type SubjectID string

type Subject struct {
	ID        SubjectID `json:"id"`
	Name      string    `json:"name"`
	ShortName string    `json:"short_name"`
}

var subjects = []Subject{
	{ID: "principles_of_ai", Name: "Principles of Artificial Intelligence", ShortName: "AI Principles"},
	{ID: "numerical_methods", Name: "Numerical Methods", ShortName: "Numerical"},
	{ID: "cloud_computing", Name: "Cloud Computing", ShortName: "Cloud"},
	{ID: "full_stack_dev_2", Name: "Full Stack Development - II", ShortName: "Full Stack II"},
	{ID: "system_design", Name: "System Design", ShortName: "System Design"},
	{ID: "competitive_coding_2", Name: "Competitive Coding-II", ShortName: "Comp Coding II"},
}

// Subjects возвращает копию справочника предметов.
func Subjects() []Subject {
	out := make([]Subject, len(subjects))
	copy(out, subjects)
	return out
}

func ValidSubject(id SubjectID) bool {
	for _, s := range subjects {
		if s.ID == id {
			return true
		}
	}
	return false
}

func ValidStatus(s Status) bool {
	return s == StatusCompleted || s == StatusUnsolved
}

func ValidTitle(s string) bool {
	return strings.TrimSpace(s) != ""
}

// ValidEmail: достаточно того, что адрес разбирается и нет display name.
func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}
