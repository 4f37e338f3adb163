package cliapp

import (
	"pyshape/internal/core/errors"
	"pyshape/internal/shared/util"
)

func writeText(path, text string) error {
	if err := util.WriteDocument(path, text); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodePermissionDenied, "write file"), errors.CtxPath, path)
	}
	return nil
}
