package stores

func submitLabel(isEdit bool) string {
	if isEdit {
		return "Salvar alterações"
	}
	return "Criar loja"
}

func costText(cost string) string {
	if cost == "" {
		return "—"
	}
	return "R$ " + cost
}

func yesNo(v bool) string {
	if v {
		return "Sim"
	}
	return "Não"
}
