package backend

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/vbonduro/washpos/internal/remote"
)

func (s *Server) handleListEmployees(c *fiber.Ctx) error {
	var emps []Employee
	if err := s.db.WithContext(c.UserContext()).Order("name").Find(&emps).Error; err != nil {
		return err
	}
	out := make([]remote.Employee, 0, len(emps))
	for _, e := range emps {
		out = append(out, remote.Employee{ID: int64(e.ID), Name: e.Name})
	}
	return c.JSON(out)
}

func (s *Server) handleCreateEmployee(c *fiber.Ctx) error {
	name, err := employeeName(c)
	if err != nil {
		return err
	}

	emp := Employee{Name: name}
	err = s.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := ensureNameFree(tx, name); err != nil {
			return err
		}
		return tx.Create(&emp).Error
	})
	if err != nil {
		return err
	}
	s.logger.Info("employee created", "name", name, "by", c.Locals(ctxUsername))
	return c.Status(fiber.StatusCreated).JSON(remote.Employee{ID: int64(emp.ID), Name: emp.Name})
}

// handleRenameEmployee renames an employee and carries their timesheet
// history over to the new name.
func (s *Server) handleRenameEmployee(c *fiber.Ctx) error {
	oldName := c.Params("name")
	newName, err := employeeName(c)
	if err != nil {
		return err
	}

	var emp Employee
	err = s.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := findEmployee(tx, oldName, &emp); err != nil {
			return err
		}
		if newName == oldName {
			return nil
		}
		if err := ensureNameFree(tx, newName); err != nil {
			return err
		}
		if err := tx.Model(&emp).Update("name", newName).Error; err != nil {
			return err
		}
		return tx.Model(&Timesheet{}).Where("employee_name = ?", oldName).Update("employee_name", newName).Error
	})
	if err != nil {
		return err
	}
	s.logger.Info("employee renamed", "from", oldName, "to", newName, "by", c.Locals(ctxUsername))
	return c.JSON(remote.Employee{ID: int64(emp.ID), Name: newName})
}

func (s *Server) handleDeleteEmployee(c *fiber.Ctx) error {
	name := c.Params("name")
	err := s.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var emp Employee
		if err := findEmployee(tx, name, &emp); err != nil {
			return err
		}
		return tx.Delete(&emp).Error
	})
	if err != nil {
		return err
	}
	s.logger.Info("employee deleted", "name", name, "by", c.Locals(ctxUsername))
	return c.SendStatus(fiber.StatusNoContent)
}

func employeeName(c *fiber.Ctx) (string, error) {
	var req remote.Employee
	if err := parseBody(c, &req); err != nil {
		return "", err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "name is required")
	}
	return name, nil
}

func findEmployee(tx *gorm.DB, name string, dst *Employee) error {
	err := tx.Where("name = ?", name).First(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "employee not found: "+name)
	}
	return err
}

func ensureNameFree(tx *gorm.DB, name string) error {
	var n int64
	if err := tx.Model(&Employee{}).Where("name = ?", name).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return fiber.NewError(fiber.StatusConflict, "employee already exists: "+name)
	}
	return nil
}
