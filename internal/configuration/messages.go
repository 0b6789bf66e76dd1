package configuration

// User-facing messages. The product is localised in Spanish; server messages are passed through
// verbatim and these are only used as fallbacks or for client-side outcomes.
const (
	MsgUnknownError = "Error desconocido"

	MsgProfileUpdated     = "Perfil actualizado exitosamente"
	MsgProfileUpdateError = "Error al actualizar el perfil: "

	MsgPasswordChanged     = "Contraseña cambiada correctamente"
	MsgPasswordChangeError = "Error al cambiar la contraseña: "

	MsgAccountDeleted     = "Cuenta eliminada exitosamente"
	MsgAccountDeleteError = "Error al eliminar la cuenta: "
	MsgWrongPassword      = "Contraseña incorrecta"

	MsgSessionsLoadError = "Error al cargar las sesiones"
	MsgSessionClosed     = "Sesión cerrada exitosamente"
	MsgSessionCloseError = "Error al cerrar la sesión: "
	MsgSessionsClosed    = "Todas las sesiones cerradas exitosamente"
	MsgSessionsCloseErr  = "Error al cerrar las sesiones: "
	MsgLoggedOut         = "Sesión finalizada"

	MsgTwoFactorEnabled      = "¡2FA habilitado exitosamente!"
	MsgTwoFactorDisabled     = "2FA deshabilitado exitosamente"
	MsgTwoFactorSetupError   = "Error al generar QR para 2FA: "
	MsgTwoFactorVerifyError  = "Error al verificar 2FA: "
	MsgTwoFactorDisableError = "Error al deshabilitar 2FA: "
	MsgInvalidCode           = "Código inválido"
	MsgTwoFactorSetupReady   = "Escanea el código QR con tu aplicación de autenticación"
	MsgExportError           = "Error al exportar los códigos de respaldo: "

	MsgLoginInvalidCode = "Código inválido. Intenta nuevamente."
)

// Confirmation prompts for destructive actions.
const (
	ConfirmCloseCurrentSession = "¿Estás seguro de que deseas cerrar tu sesión actual? Serás desconectado."
	ConfirmCloseSession        = "¿Estás seguro de que deseas cerrar esta sesión?"
	ConfirmCloseOtherSessions  = "¿Estás seguro de que deseas cerrar todas las sesiones? Esto cerrará tu sesión en todos los dispositivos excepto este."
	ConfirmCloseAllSessions    = "¿Estás seguro de que deseas cerrar todas las sesiones? Esto cerrará tu sesión en todos los dispositivos incluyendo este."
	ConfirmDeleteAccount       = "¿Estás seguro de que deseas eliminar tu cuenta? Esta acción no se puede deshacer."
)
