// Package validation checks records against typed field rules and applies
// a failure policy to records that have errors.
//
// Supported rule kinds are required, string, number, boolean, array, email,
// url, date, phone, regex, enum, length and custom. Every kind except
// required passes when the field is absent, null or an empty string.
//
// Failure policies:
//   - reject keeps every record; the report is valid only without errors
//   - filter drops records with errors; the report is always valid
//   - warn keeps every record and attaches its errors under
//     "_validationWarnings"; the report is always valid
package validation
