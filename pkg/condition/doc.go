/*
Package condition implements the guard condition grammar of workflow states.

Conditions are plain strings in the workflow configuration. They are parsed once,
when a state machine is compiled, into a closed set of kinds:

	field_<name>                 passes if context[name] is present and not nil
	user_role_<role>             passes if role is listed in context["user_roles"]
	value_<field>_<op>_<value>   compares context[field] with value (eq, gt, lt)

Anything else is KindUnknown and always passes. The value_ form is split on
underscores, so field names containing underscores cannot be expressed; the
literal keeps any remaining underscores.
*/
package condition
